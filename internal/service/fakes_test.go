package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"

	"gorm.io/gorm"
)

// fakeDB is shared in-memory state for the store fakes. It mimics the
// behavior the gorm repositories have against MySQL, including the
// reactivate-on-touch rule and pair reuse in either direction.
type fakeDB struct {
	mu sync.Mutex

	convs       map[uint]*models.Conversation
	msgs        map[uint]*models.Message
	attachments map[uint][]models.MessageAttachment
	notifs      map[uint]*models.Notification
	settings    map[uint]*models.NotificationSettings
	users       map[uint]*models.User
	listings    map[uint]*models.Listing

	convSeq, msgSeq, notifSeq, attSeq, settingsSeq uint
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		convs:       make(map[uint]*models.Conversation),
		msgs:        make(map[uint]*models.Message),
		attachments: make(map[uint][]models.MessageAttachment),
		notifs:      make(map[uint]*models.Notification),
		settings:    make(map[uint]*models.NotificationSettings),
		users:       make(map[uint]*models.User),
		listings:    make(map[uint]*models.Listing),
	}
}

func (db *fakeDB) addUser(id uint, name string) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := &models.User{ID: id, Username: strings.ToLower(name), Email: strings.ToLower(name) + "@example.se", Name: name, Role: domain.RoleUser}
	db.users[id] = u
	return u
}

func (db *fakeDB) addListing(id, ownerID uint, title string) *models.Listing {
	db.mu.Lock()
	defer db.mu.Unlock()
	l := &models.Listing{ID: id, OwnerID: ownerID, Title: title, Category: domain.ListingCategoryBusiness, Currency: "SEK", Status: domain.ListingActive}
	db.listings[id] = l
	return l
}

type fakeConvStore struct{ db *fakeDB }

func (s *fakeConvStore) FindOrCreate(conv *models.Conversation, firstMessage *models.Message) (*models.Conversation, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.convs {
		samePair := (c.InitiatorID == conv.InitiatorID && c.ReceiverID == conv.ReceiverID) ||
			(c.InitiatorID == conv.ReceiverID && c.ReceiverID == conv.InitiatorID)
		sameListing := (c.ListingID == nil && conv.ListingID == nil) ||
			(c.ListingID != nil && conv.ListingID != nil && *c.ListingID == *conv.ListingID)
		if samePair && sameListing {
			if c.Status == domain.ConversationBlocked {
				return nil, false, domain.ErrConversationBlocked
			}
			c.Status = domain.ConversationActive
			cp := *c
			return &cp, false, nil
		}
	}
	s.db.convSeq++
	conv.ID = s.db.convSeq
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	if firstMessage != nil {
		s.db.msgSeq++
		firstMessage.ID = s.db.msgSeq
		firstMessage.ConversationID = conv.ID
		firstMessage.CreatedAt = time.Now()
		cp := *firstMessage
		s.db.msgs[cp.ID] = &cp
		at := cp.CreatedAt
		conv.LastMessageAt = &at
	}
	cp := *conv
	s.db.convs[cp.ID] = &cp
	return conv, true, nil
}

func (s *fakeConvStore) GetByID(id uint) (*models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeConvStore) Update(c *models.Conversation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *c
	cp.UpdatedAt = time.Now()
	s.db.convs[c.ID] = &cp
	return nil
}

func (s *fakeConvStore) ListByUser(userID uint, limit, offset int) ([]models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.db.convs {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastMessageAt == nil && b.LastMessageAt == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.LastMessageAt == nil:
			return false
		case b.LastMessageAt == nil:
			return true
		default:
			return a.LastMessageAt.After(*b.LastMessageAt)
		}
	})
	return page(out, limit, offset), nil
}

func (s *fakeConvStore) TouchLastMessage(id uint, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.convs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t := at
	c.LastMessageAt = &t
	c.Status = domain.ConversationActive
	return nil
}

func (s *fakeConvStore) ListActiveByListing(listingID uint) ([]models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.db.convs {
		if c.ListingID != nil && *c.ListingID == listingID && c.Status == domain.ConversationActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeMsgStore struct{ db *fakeDB }

func (s *fakeMsgStore) Create(m *models.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.msgSeq++
	m.ID = s.db.msgSeq
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	s.db.msgs[cp.ID] = &cp
	return nil
}

func (s *fakeMsgStore) GetByID(id uint) (*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.msgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	cp.Attachments = append([]models.MessageAttachment(nil), s.db.attachments[id]...)
	return &cp, nil
}

func (s *fakeMsgStore) Update(m *models.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *m
	cp.Attachments = nil
	cp.UpdatedAt = time.Now()
	s.db.msgs[m.ID] = &cp
	return nil
}

func (s *fakeMsgStore) ListByConversation(conversationID uint, limit, offset int) ([]models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Message
	for _, m := range s.db.msgs {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (s *fakeMsgStore) Search(conversationID uint, query string, limit, offset int) ([]models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.Message
	for _, m := range s.db.msgs {
		if m.ConversationID != conversationID || m.Status == domain.MessageDeleted {
			continue
		}
		if strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (s *fakeMsgStore) LastMessage(conversationID uint) (*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var last *models.Message
	for _, m := range s.db.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if last == nil || m.ID > last.ID {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (s *fakeMsgStore) UnreadCount(conversationID, userID uint) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, m := range s.db.msgs {
		if m.ConversationID == conversationID && m.ReceiverID == userID &&
			(m.Status == domain.MessageSent || m.Status == domain.MessageDelivered) {
			n++
		}
	}
	return n, nil
}

func (s *fakeMsgStore) MarkConversationRead(conversationID, userID uint, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, m := range s.db.msgs {
		if m.ConversationID == conversationID && m.ReceiverID == userID &&
			(m.Status == domain.MessageSent || m.Status == domain.MessageDelivered) {
			m.Status = domain.MessageRead
			t := at
			m.ReadAt = &t
		}
	}
	return nil
}

func (s *fakeMsgStore) AddAttachment(a *models.MessageAttachment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.attSeq++
	a.ID = s.db.attSeq
	a.CreatedAt = time.Now()
	s.db.attachments[a.MessageID] = append(s.db.attachments[a.MessageID], *a)
	return nil
}

func (s *fakeMsgStore) DeleteAttachments(messageID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.attachments, messageID)
	return nil
}

type fakeNotifStore struct{ db *fakeDB }

func (s *fakeNotifStore) Create(n *models.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.notifSeq++
	n.ID = s.db.notifSeq
	n.CreatedAt = time.Now()
	cp := *n
	s.db.notifs[cp.ID] = &cp
	return nil
}

func (s *fakeNotifStore) GetByID(id uint) (*models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *fakeNotifStore) ListByUser(userID uint, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Notification
	for _, n := range s.db.notifs {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (s *fakeNotifStore) MarkRead(id, userID uint, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifs[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	t := at
	n.ReadAt = &t
	return nil
}

func (s *fakeNotifStore) MarkAllRead(userID uint, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range s.db.notifs {
		if n.UserID == userID && n.ReadAt == nil {
			t := at
			n.ReadAt = &t
		}
	}
	return nil
}

func (s *fakeNotifStore) UnreadCount(userID uint) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, x := range s.db.notifs {
		if x.UserID == userID && x.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *fakeNotifStore) Delete(id, userID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifs[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(s.db.notifs, id)
	return nil
}

func (s *fakeNotifStore) GetSettings(userID uint) (*models.NotificationSettings, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, ok := s.db.settings[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *fakeNotifStore) SaveSettings(st *models.NotificationSettings) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if st.ID == 0 {
		s.db.settingsSeq++
		st.ID = s.db.settingsSeq
	}
	cp := *st
	s.db.settings[st.UserID] = &cp
	return nil
}

type fakeUserStore struct{ db *fakeDB }

func (s *fakeUserStore) GetByID(id uint) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeListingStore struct{ db *fakeDB }

func (s *fakeListingStore) GetByID(id uint) (*models.Listing, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

// rtEvent is one captured broadcast: scope is "user" or "conversation" and
// targetID is the user or conversation it went to.
type rtEvent struct {
	scope    string
	targetID uint
	except   uint
	event    string
	payload  map[string]interface{}
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	events  []rtEvent
	viewing map[[2]uint]bool // (conversationID, userID)
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{viewing: make(map[[2]uint]bool)}
}

func (b *fakeBroadcaster) ToUser(userID uint, event string, payload map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, rtEvent{scope: "user", targetID: userID, event: event, payload: payload})
}

func (b *fakeBroadcaster) ToConversation(conversationID, exceptUserID uint, event string, payload map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, rtEvent{scope: "conversation", targetID: conversationID, except: exceptUserID, event: event, payload: payload})
}

func (b *fakeBroadcaster) IsViewing(conversationID, userID uint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewing[[2]uint{conversationID, userID}]
}

func (b *fakeBroadcaster) setViewing(conversationID, userID uint, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewing[[2]uint{conversationID, userID}] = v
}

func (b *fakeBroadcaster) eventsNamed(event string) []rtEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []rtEvent
	for _, e := range b.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type pushCall struct {
	token, notifType, title, body string
}

type fakePusher struct {
	mu    sync.Mutex
	calls []pushCall
}

func (p *fakePusher) SendToUser(_ context.Context, token, notifType, title, body string, _ map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{token: token, notifType: notifType, title: title, body: body})
	return nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string // publicIDs, images and raw files alike
}

func (u *fakeUploader) UploadImage(_ context.Context, _ io.Reader, folder, publicID string) (string, string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads = append(u.uploads, publicID)
	base := "https://cdn.test/" + folder + "/" + publicID
	return base, base + "/thumb", nil
}

func (u *fakeUploader) UploadFile(_ context.Context, _ io.Reader, folder, publicID string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads = append(u.uploads, publicID)
	return "https://cdn.test/" + folder + "/" + publicID, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// fixture wires all services against the in-memory fakes.
type fixture struct {
	db       *fakeDB
	rt       *fakeBroadcaster
	push     *fakePusher
	uploader *fakeUploader

	convStore  *fakeConvStore
	msgStore   *fakeMsgStore
	notifStore *fakeNotifStore

	notifSvc *NotificationService
	msgSvc   *MessageService
	convSvc  *ConversationService
}

func newFixture() *fixture {
	db := newFakeDB()
	rt := newFakeBroadcaster()
	push := &fakePusher{}
	up := &fakeUploader{}
	convStore := &fakeConvStore{db: db}
	msgStore := &fakeMsgStore{db: db}
	notifStore := &fakeNotifStore{db: db}
	users := &fakeUserStore{db: db}
	listings := &fakeListingStore{db: db}

	notifSvc := NewNotificationService(notifStore, users, push, rt)
	msgSvc := NewMessageService(msgStore, convStore, users, notifSvc, rt, up, AttachmentPolicy{
		MaxBytes:         1 << 20,
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "application/pdf"},
	})
	convSvc := NewConversationService(convStore, msgStore, users, listings, msgSvc, notifSvc, rt)
	return &fixture{
		db: db, rt: rt, push: push, uploader: up,
		convStore: convStore, msgStore: msgStore, notifStore: notifStore,
		notifSvc: notifSvc, msgSvc: msgSvc, convSvc: convSvc,
	}
}
