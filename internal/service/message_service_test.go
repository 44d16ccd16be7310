package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"hansa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) newConversation(t *testing.T, a, b uint) uint {
	t.Helper()
	conv, _, err := f.convSvc.Create(CreateConversationInput{InitiatorID: a, ReceiverID: b})
	require.NoError(t, err)
	return conv.ID
}

func TestSendUpdatesLastMessageAt(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)

	before, err := f.convStore.GetByID(convID)
	require.NoError(t, err)
	assert.Nil(t, before.LastMessageAt)

	m, err := f.msgSvc.Send(convID, 1, "hej", "")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageSent, m.Status)
	assert.Equal(t, domain.MessageTypeText, m.Type)
	assert.Equal(t, uint(2), m.ReceiverID)

	after, err := f.convStore.GetByID(convID)
	require.NoError(t, err)
	require.NotNil(t, after.LastMessageAt)
	assert.Equal(t, m.CreatedAt, *after.LastMessageAt)
}

func TestSendBlockedFailsForBothParticipants(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	_, err := f.convSvc.SetStatus(convID, 1, domain.ConversationBlocked)
	require.NoError(t, err)

	_, err = f.msgSvc.Send(convID, 1, "hej", "")
	assert.ErrorIs(t, err, domain.ErrConversationBlocked)
	_, err = f.msgSvc.Send(convID, 2, "hej", "")
	assert.ErrorIs(t, err, domain.ErrConversationBlocked)
}

func TestSendNotParticipant(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	f.db.addUser(3, "Cilla")
	convID := f.newConversation(t, 1, 2)

	_, err := f.msgSvc.Send(convID, 3, "hej", "")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	_, err = f.msgSvc.Send(9999, 1, "hej", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendInvalidType(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)

	_, err := f.msgSvc.Send(convID, 1, "hej", "VOICE")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestSendReactivatesArchived(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	_, err := f.convSvc.SetStatus(convID, 1, domain.ConversationArchived)
	require.NoError(t, err)

	_, err = f.msgSvc.Send(convID, 2, "still there?", "")
	require.NoError(t, err)
	conv, err := f.convStore.GetByID(convID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationActive, conv.Status)
}

func TestSendNotifiesUnlessViewing(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)

	_, err := f.msgSvc.Send(convID, 1, "offline message", "")
	require.NoError(t, err)
	notifs, err := f.notifStore.ListByUser(2, 10, 0, false)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, domain.NotificationMessage, notifs[0].Type)
	assert.Contains(t, notifs[0].Body, "Anna")

	f.rt.setViewing(convID, 2, true)
	_, err = f.msgSvc.Send(convID, 1, "while viewing", "")
	require.NoError(t, err)
	notifs, err = f.notifStore.ListByUser(2, 10, 0, false)
	require.NoError(t, err)
	assert.Len(t, notifs, 1, "no notification while the receiver views the conversation")

	events := f.rt.eventsNamed("new_message")
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "conversation", last.scope)
	assert.Equal(t, uint(1), last.except, "sender does not get their own event echoed")
}

func TestMarkDeliveredReceiverOnly(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	m, err := f.msgSvc.Send(convID, 1, "hej", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.msgSvc.MarkDelivered(m.ID, 1), domain.ErrNotOwner)

	require.NoError(t, f.msgSvc.MarkDelivered(m.ID, 2))
	got, err := f.msgStore.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageDelivered, got.Status)
	assert.NotNil(t, got.DeliveredAt)

	// Delivered after read is a no-op, never a regression.
	require.NoError(t, f.msgSvc.MarkRead(m.ID, 2))
	require.NoError(t, f.msgSvc.MarkDelivered(m.ID, 2))
	got, err = f.msgStore.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageRead, got.Status)
}

func TestMarkReadIdempotent(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	m, err := f.msgSvc.Send(convID, 1, "hej", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.msgSvc.MarkRead(m.ID, 1), domain.ErrNotOwner)

	require.NoError(t, f.msgSvc.MarkRead(m.ID, 2))
	got, err := f.msgStore.GetByID(m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReadAt)
	firstRead := *got.ReadAt

	require.NoError(t, f.msgSvc.MarkRead(m.ID, 2))
	got, err = f.msgStore.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, firstRead, *got.ReadAt, "second call does not move the timestamp")

	events := f.rt.eventsNamed("message_read")
	assert.Len(t, events, 1)
	assert.Equal(t, uint(1), events[0].targetID, "sender gets the read receipt")
}

func TestDeleteSenderOnlyAndMasks(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	m, err := f.msgSvc.Send(convID, 1, "secret", "")
	require.NoError(t, err)
	_, err = f.msgSvc.UploadAttachment(context.Background(), m.ID, 1, strings.NewReader("x"), "a.pdf", "application/pdf", 1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.msgSvc.Delete(m.ID, 2), domain.ErrNotOwner)

	require.NoError(t, f.msgSvc.Delete(m.ID, 1))
	got, err := f.msgStore.GetByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageDeleted, got.Status)
	assert.Empty(t, got.Content)
	assert.Empty(t, got.Attachments)

	// Idempotent.
	require.NoError(t, f.msgSvc.Delete(m.ID, 1))

	events := f.rt.eventsNamed("message_deleted")
	require.Len(t, events, 1)
	assert.Equal(t, uint(0), events[0].except, "both participants see the tombstone")
}

func TestSearchMessages(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	_, err := f.msgSvc.Send(convID, 1, "Price is negotiable", "")
	require.NoError(t, err)
	deleted, err := f.msgSvc.Send(convID, 1, "wrong PRICE, ignore", "")
	require.NoError(t, err)
	require.NoError(t, f.msgSvc.Delete(deleted.ID, 1))

	res, err := f.msgSvc.Search(convID, 2, "pRiCe", 1, 20)
	require.NoError(t, err)
	require.Len(t, res, 1, "deleted messages never match")
	assert.Equal(t, "Price is negotiable", res[0].Content)

	res, err = f.msgSvc.Search(convID, 2, "nothing matches this", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = f.msgSvc.Search(convID, 2, "   ", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, res, "blank query is an empty result, not an error")

	_, err = f.msgSvc.Search(convID, 99, "price", 1, 20)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestPreviewKeepsRuneBoundaries(t *testing.T) {
	short := "Hej då"
	assert.Equal(t, short, preview(short))

	long := strings.Repeat("å", 200)
	p := preview(long)
	assert.True(t, utf8.ValidString(p))
	assert.True(t, strings.HasSuffix(p, "…"))
	assert.Equal(t, 121, utf8.RuneCountInString(p), "120 runes plus the ellipsis")

	// More bytes than the limit but fewer runes: returned untouched.
	dense := strings.Repeat("ö", 100)
	assert.Equal(t, dense, preview(dense))
}

func TestUploadAttachmentValidation(t *testing.T) {
	f := newFixture()
	f.db.addUser(1, "Anna")
	f.db.addUser(2, "Bjorn")
	convID := f.newConversation(t, 1, 2)
	m, err := f.msgSvc.Send(convID, 1, "see attached", "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.msgSvc.UploadAttachment(ctx, m.ID, 2, strings.NewReader("x"), "a.png", "image/png", 10)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = f.msgSvc.UploadAttachment(ctx, m.ID, 1, strings.NewReader("x"), "a.exe", "application/x-msdownload", 10)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)

	_, err = f.msgSvc.UploadAttachment(ctx, m.ID, 1, strings.NewReader("x"), "big.png", "image/png", 2<<20)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	a, err := f.msgSvc.UploadAttachment(ctx, m.ID, 1, strings.NewReader("x"), "photo.png", "image/png", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, a.URL)
	assert.NotEmpty(t, a.ThumbnailURL, "images get a thumbnail")
	assert.Equal(t, m.ID, a.MessageID)

	pdf, err := f.msgSvc.UploadAttachment(ctx, m.ID, 1, strings.NewReader("x"), "doc.pdf", "application/pdf", 10)
	require.NoError(t, err)
	assert.Empty(t, pdf.ThumbnailURL, "raw files have no thumbnail")
}
