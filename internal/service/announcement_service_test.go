package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type fakeAnnouncements struct {
	nextID int64
	items  map[int64]*domain.Announcement
}

func newFakeAnnouncements() *fakeAnnouncements {
	return &fakeAnnouncements{items: map[int64]*domain.Announcement{}}
}

func (f *fakeAnnouncements) Create(ctx context.Context, in repository.CreateAnnouncementInput) (*domain.Announcement, error) {
	f.nextID++
	a := &domain.Announcement{
		ID:               f.nextID,
		Title:            in.Title,
		Content:          in.Content,
		Category:         in.Category,
		Priority:         in.Priority,
		TargetRole:       in.TargetRole,
		TargetBuildingID: in.TargetBuildingID,
		Status:           in.Status,
		CreatedBy:        in.CreatedBy,
		PublishedAt:      in.PublishedAt,
	}
	f.items[a.ID] = a
	return a, nil
}

func (f *fakeAnnouncements) Update(ctx context.Context, in repository.UpdateAnnouncementInput) (*domain.Announcement, error) {
	a, ok := f.items[in.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.Title = in.Title
	a.Content = in.Content
	a.Category = in.Category
	a.Priority = in.Priority
	a.TargetRole = in.TargetRole
	a.TargetBuildingID = in.TargetBuildingID
	copied := *a
	return &copied, nil
}

func (f *fakeAnnouncements) GetByID(ctx context.Context, id int64) (*domain.Announcement, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAnnouncements) SetStatus(ctx context.Context, id int64, status domain.AnnouncementStatus, publishedAt *time.Time) (*domain.Announcement, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.Status = status
	if publishedAt != nil {
		a.PublishedAt = publishedAt
	}
	copied := *a
	return &copied, nil
}

type fakeProfiles struct {
	profiles []domain.UserProfile
}

func (f fakeProfiles) List(ctx context.Context, role *domain.UserRole, limit int) ([]domain.UserProfile, error) {
	if role == nil {
		return f.profiles, nil
	}
	var out []domain.UserProfile
	for _, p := range f.profiles {
		if p.Role == *role {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeInbox struct {
	mu      sync.Mutex
	items   []repository.CreateNotificationInput
	failFor map[int64]bool
}

func (f *fakeInbox) Create(ctx context.Context, in repository.CreateNotificationInput) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[in.UserID] {
		return nil, fmt.Errorf("write failed")
	}
	f.items = append(f.items, in)
	return &domain.Notification{ID: int64(len(f.items)), UserID: in.UserID, Message: in.Message}, nil
}

func (f *fakeInbox) byUser() map[int64]repository.CreateNotificationInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]repository.CreateNotificationInput, len(f.items))
	for _, n := range f.items {
		out[n.UserID] = n
	}
	return out
}

func testProfiles() []domain.UserProfile {
	return []domain.UserProfile{
		{ID: 1, Name: "Ada", Role: domain.RoleAdmin},
		{ID: 2, Name: "Max", Role: domain.RoleManager},
		{ID: 3, Name: "Rita", Role: domain.RoleResident},
		{ID: 4, Name: "Remy", Role: domain.RoleResident},
	}
}

func announcementSvc(store *fakeAnnouncements, inbox *fakeInbox, units []domain.Unit) AnnouncementService {
	return AnnouncementService{
		Announcements: store,
		Profiles:      fakeProfiles{profiles: testProfiles()},
		Units:         fakeUnits{units: units},
		Notifications: inbox,
		Logger:        testLogger(),
	}
}

func draft(store *fakeAnnouncements, content string, target domain.TargetRole, buildingID *int64) *domain.Announcement {
	a, _ := store.Create(context.Background(), repository.CreateAnnouncementInput{
		Title:            "Elevator maintenance",
		Content:          content,
		Priority:         domain.PriorityNormal,
		TargetRole:       target,
		TargetBuildingID: buildingID,
		Status:           domain.AnnouncementDraft,
		CreatedBy:        1,
	})
	return a
}

func TestPublishFansOutToAllRoles(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)
	a := draft(store, "Water will be shut off at noon.", domain.TargetAll, nil)

	published, res, err := svc.Publish(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnnouncementPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	assert.Equal(t, 4, res.Requested)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 0, res.Failed)

	byUser := inbox.byUser()
	require.Len(t, byUser, 4)
	for _, n := range byUser {
		assert.Equal(t, domain.NotificationAnnouncement, n.Type)
		assert.Equal(t, "Elevator maintenance", n.Title)
		assert.Equal(t, "Water will be shut off at noon.", n.Message)
		assert.Equal(t, "/announcements", n.Link)
		require.NotNil(t, n.RelatedID)
		assert.Equal(t, a.ID, *n.RelatedID)
	}
}

func TestPublishFiltersByRole(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)
	a := draft(store, "Managers meeting on Friday.", domain.TargetManagers, nil)

	_, res, err := svc.Publish(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	byUser := inbox.byUser()
	require.Len(t, byUser, 1)
	_, ok := byUser[2]
	assert.True(t, ok)
}

func TestPublishIntersectsBuildingResidents(t *testing.T) {
	buildingID := int64(7)
	resident3 := int64(3)
	units := []domain.Unit{
		{ID: 1, BuildingID: buildingID, ResidentID: &resident3},
		{ID: 2, BuildingID: buildingID},
	}

	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, units)
	a := draft(store, "Parking repaving next week.", domain.TargetResidents, &buildingID)

	_, res, err := svc.Publish(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	byUser := inbox.byUser()
	require.Len(t, byUser, 1)
	_, ok := byUser[resident3]
	assert.True(t, ok)
}

func TestPublishTruncatesLongContent(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)
	content := strings.Repeat("x", 150)
	a := draft(store, content, domain.TargetAll, nil)

	_, _, err := svc.Publish(context.Background(), a.ID)
	require.NoError(t, err)

	for _, n := range inbox.byUser() {
		assert.Len(t, []rune(n.Message), 103)
		assert.True(t, strings.HasSuffix(n.Message, "..."))
		assert.Equal(t, content[:100], n.Message[:100])
	}
}

func TestPublishCountsPartialFailures(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{failFor: map[int64]bool{3: true}}
	svc := announcementSvc(store, inbox, nil)
	a := draft(store, "Fire drill tomorrow.", domain.TargetAll, nil)

	_, res, err := svc.Publish(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Requested)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.Failed)
}

func TestPublishHappensOnlyOnce(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)
	a := draft(store, "One time only.", domain.TargetAll, nil)

	_, _, err := svc.Publish(context.Background(), a.ID)
	require.NoError(t, err)
	firstCount := len(inbox.byUser())

	_, _, err = svc.Publish(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrAlreadyPublished)
	assert.Len(t, inbox.byUser(), firstCount)
}

func TestArchiveDraftNeverNotifies(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)
	a := draft(store, "Never sent.", domain.TargetAll, nil)

	archived, err := svc.Archive(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AnnouncementArchived, archived.Status)
	assert.Nil(t, archived.PublishedAt)
	assert.Empty(t, inbox.byUser())
}

func TestArchivedAnnouncementIsImmutable(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)
	a := draft(store, "Old news.", domain.TargetAll, nil)

	_, err := svc.Archive(context.Background(), a.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), repository.UpdateAnnouncementInput{
		ID:    a.ID,
		Title: "Edited",
	})
	assert.ErrorIs(t, err, ErrArchived)

	_, _, err = svc.Publish(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrArchived)
}

func TestCreateWithImmediatePublish(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)

	a, res, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:      "Hot water restored",
		Content:    "Hot water is back in all units.",
		Priority:   domain.PriorityHigh,
		TargetRole: domain.TargetAll,
		CreatedBy:  1,
		Publish:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AnnouncementPublished, a.Status)
	require.NotNil(t, res)
	assert.Equal(t, 4, res.Created)
}

func TestCreateDraftDoesNotNotify(t *testing.T) {
	store := newFakeAnnouncements()
	inbox := &fakeInbox{}
	svc := announcementSvc(store, inbox, nil)

	a, res, err := svc.Create(context.Background(), CreateAnnouncementRequest{
		Title:      "Draft only",
		Content:    "Not yet.",
		TargetRole: domain.TargetAll,
		CreatedBy:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AnnouncementDraft, a.Status)
	assert.Nil(t, res)
	assert.Empty(t, inbox.byUser())
}
