package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/push"
	"github.com/kamal24h/key-building-app/internal/repository"
)

var (
	ErrArchived         = errors.New("announcement is archived")
	ErrAlreadyPublished = errors.New("announcement is already published")
)

// notificationPreviewLen is the number of characters of announcement content
// carried into each notification before truncation.
const notificationPreviewLen = 100

type AnnouncementStore interface {
	Create(ctx context.Context, in repository.CreateAnnouncementInput) (*domain.Announcement, error)
	Update(ctx context.Context, in repository.UpdateAnnouncementInput) (*domain.Announcement, error)
	GetByID(ctx context.Context, id int64) (*domain.Announcement, error)
	SetStatus(ctx context.Context, id int64, status domain.AnnouncementStatus, publishedAt *time.Time) (*domain.Announcement, error)
}

type ProfileDirectory interface {
	List(ctx context.Context, role *domain.UserRole, limit int) ([]domain.UserProfile, error)
}

type NotificationWriter interface {
	Create(ctx context.Context, in repository.CreateNotificationInput) (*domain.Notification, error)
}

type DeviceTokenDirectory interface {
	ListByUsers(ctx context.Context, userIDs []int64) ([]string, error)
}

type AnnouncementService struct {
	Announcements AnnouncementStore
	Profiles      ProfileDirectory
	Units         UnitDirectory
	Notifications NotificationWriter
	Tokens        DeviceTokenDirectory
	Pusher        push.Pusher
	Logger        *slog.Logger
}

type CreateAnnouncementRequest struct {
	Title            string
	Content          string
	Category         string
	Priority         domain.Priority
	TargetRole       domain.TargetRole
	TargetBuildingID *int64
	CreatedBy        int64
	Publish          bool
}

// Create stores a new announcement. When Publish is set it goes out
// immediately and the fan-out result is returned alongside it; otherwise it
// stays a draft and the result is nil.
func (s AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*domain.Announcement, *BatchResult, error) {
	in := repository.CreateAnnouncementInput{
		Title:            req.Title,
		Content:          req.Content,
		Category:         req.Category,
		Priority:         req.Priority,
		TargetRole:       req.TargetRole,
		TargetBuildingID: req.TargetBuildingID,
		Status:           domain.AnnouncementDraft,
		CreatedBy:        req.CreatedBy,
	}
	if req.Publish {
		now := time.Now()
		in.Status = domain.AnnouncementPublished
		in.PublishedAt = &now
	}
	a, err := s.Announcements.Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if !req.Publish {
		return a, nil, nil
	}
	res, err := s.fanOut(ctx, a)
	return a, res, err
}

// Update edits an announcement's content and targeting. Archived
// announcements are immutable.
func (s AnnouncementService) Update(ctx context.Context, in repository.UpdateAnnouncementInput) (*domain.Announcement, error) {
	current, err := s.Announcements.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.AnnouncementArchived {
		return nil, ErrArchived
	}
	return s.Announcements.Update(ctx, in)
}

// Publish transitions a draft to published and fans out notifications to the
// targeted audience. Fan-out happens exactly once, on this transition.
func (s AnnouncementService) Publish(ctx context.Context, id int64) (*domain.Announcement, *BatchResult, error) {
	current, err := s.Announcements.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	switch current.Status {
	case domain.AnnouncementArchived:
		return nil, nil, ErrArchived
	case domain.AnnouncementPublished:
		return nil, nil, ErrAlreadyPublished
	}
	now := time.Now()
	a, err := s.Announcements.SetStatus(ctx, id, domain.AnnouncementPublished, &now)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.fanOut(ctx, a)
	return a, res, err
}

// Archive retires an announcement. Archiving a draft never notifies anyone.
func (s AnnouncementService) Archive(ctx context.Context, id int64) (*domain.Announcement, error) {
	if _, err := s.Announcements.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Announcements.SetStatus(ctx, id, domain.AnnouncementArchived, nil)
}

// fanOut writes one notification per targeted user. Each write is
// independent: a failure for one recipient never blocks the rest, and the
// counts report how far the batch got.
func (s AnnouncementService) fanOut(ctx context.Context, a *domain.Announcement) (*BatchResult, error) {
	recipients, err := s.recipients(ctx, a)
	if err != nil {
		return nil, err
	}

	message := truncateContent(a.Content)
	related := a.ID

	res := &BatchResult{Requested: len(recipients)}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range recipients {
		wg.Add(1)
		go func(p domain.UserProfile) {
			defer wg.Done()
			_, err := s.Notifications.Create(ctx, repository.CreateNotificationInput{
				UserID:    p.ID,
				Type:      domain.NotificationAnnouncement,
				Title:     a.Title,
				Message:   message,
				Link:      "/announcements",
				RelatedID: &related,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				s.Logger.Error("notification write failed", "announcement_id", a.ID, "user_id", p.ID, "err", err)
				return
			}
			res.Created++
		}(p)
	}
	wg.Wait()

	s.sendPush(ctx, a, message, recipients)
	return res, nil
}

// recipients resolves the announcement's audience: role filter first, then,
// when the announcement targets a building, intersection with the residents
// currently assigned to that building's units.
func (s AnnouncementService) recipients(ctx context.Context, a *domain.Announcement) ([]domain.UserProfile, error) {
	var role *domain.UserRole
	if a.TargetRole != domain.TargetAll {
		r := domain.UserRole(a.TargetRole)
		role = &r
	}
	profiles, err := s.Profiles.List(ctx, role, 0)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if a.TargetBuildingID == nil {
		return profiles, nil
	}

	units, err := s.Units.ListByBuilding(ctx, *a.TargetBuildingID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	residents := make(map[int64]struct{}, len(units))
	for _, u := range units {
		if u.ResidentID != nil {
			residents[*u.ResidentID] = struct{}{}
		}
	}
	matched := profiles[:0:0]
	for _, p := range profiles {
		if _, ok := residents[p.ID]; ok {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// sendPush is best-effort: the inbox rows are already written and a push
// failure only gets logged.
func (s AnnouncementService) sendPush(ctx context.Context, a *domain.Announcement, message string, recipients []domain.UserProfile) {
	if s.Pusher == nil || s.Tokens == nil || len(recipients) == 0 {
		return
	}
	ids := make([]int64, 0, len(recipients))
	for _, p := range recipients {
		ids = append(ids, p.ID)
	}
	tokens, err := s.Tokens.ListByUsers(ctx, ids)
	if err != nil {
		s.Logger.Error("device token lookup failed", "announcement_id", a.ID, "err", err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	if err := s.Pusher.Push(ctx, tokens, a.Title, message); err != nil {
		s.Logger.Error("push delivery failed", "announcement_id", a.ID, "err", err)
	}
}

func truncateContent(content string) string {
	runes := []rune(content)
	if len(runes) <= notificationPreviewLen {
		return content
	}
	return string(runes[:notificationPreviewLen]) + "..."
}
