package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alphabot-ai/ranked/internal/store"
)

// Registration is the profile supplied when an identity first signs up.
type Registration struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
}

// RegisterUser creates the user document for an identity. New users start
// with the content filter off (badWordsMode on).
func (s *Service) RegisterUser(ctx context.Context, uid string, reg Registration) (*store.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.DisplayName = strings.TrimSpace(reg.DisplayName)
	reg.FullName = strings.TrimSpace(reg.FullName)
	if uid == "" || reg.Email == "" || reg.DisplayName == "" {
		return nil, fmt.Errorf("%w: email and display name are required", ErrInvalidUser)
	}

	if ok, err := s.UsernameAvailable(ctx, reg.DisplayName); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("display name %q: %w", reg.DisplayName, ErrConflict)
	}
	if ok, err := s.EmailAvailable(ctx, reg.Email); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("email %q: %w", reg.Email, ErrConflict)
	}

	user := &store.User{
		ID:           uid,
		DisplayName:  reg.DisplayName,
		FullName:     reg.FullName,
		Email:        reg.Email,
		BadWordsMode: true,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("user %s: %w", uid, ErrConflict)
		}
		return nil, fmt.Errorf("create user %s: %w", uid, err)
	}

	s.log.Info().Str("user", uid).Str("name", user.DisplayName).Msg("user registered")
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*store.User, error) {
	return s.loadUser(ctx, id)
}

// UsernameAvailable compares case-insensitively.
func (s *Service) UsernameAvailable(ctx context.Context, name string) (bool, error) {
	existing, err := s.store.FindUserByDisplayName(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("find display name: %w", err)
	}
	return existing == nil, nil
}

func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	existing, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, fmt.Errorf("find email: %w", err)
	}
	return existing == nil, nil
}

// SearchUsers matches display names by case-insensitive prefix.
func (s *Service) SearchUsers(ctx context.Context, prefix string, limit int) ([]*store.User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []*store.User{}, nil
	}
	users, err := s.store.SearchUsers(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func (s *Service) Block(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfBlock
	}
	return s.updateSelf(ctx, actorID, store.AddBlocked(targetID))
}

func (s *Service) Unblock(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfBlock
	}
	return s.updateSelf(ctx, actorID, store.RemoveBlocked(targetID))
}

func (s *Service) SetPushToken(ctx context.Context, userID, token string) error {
	return s.updateSelf(ctx, userID, store.SetPushToken(strings.TrimSpace(token)))
}

func (s *Service) SetBadWordsMode(ctx context.Context, userID string, on bool) error {
	return s.updateSelf(ctx, userID, store.SetBadWordsMode(on))
}

func (s *Service) AcceptTerms(ctx context.Context, userID string) error {
	return s.updateSelf(ctx, userID, store.AcceptTerms(s.now()))
}

// RecordShare counts one app share and returns the new total.
func (s *Service) RecordShare(ctx context.Context, userID string) (int, error) {
	if err := s.updateSelf(ctx, userID, store.IncrementShareCount()); err != nil {
		return 0, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.ShareCount, nil
}

// AdvanceSecretButton moves the hidden profile button one step and returns
// the new index.
func (s *Service) AdvanceSecretButton(ctx context.Context, userID string) (int, error) {
	if err := s.updateSelf(ctx, userID, store.IncrementSecretButtonIndex()); err != nil {
		return 0, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.SecretButtonIndex, nil
}

func (s *Service) updateSelf(ctx context.Context, userID string, updates ...store.UserUpdate) error {
	found, err := s.store.UpdateUser(ctx, userID, updates...)
	if err != nil {
		return fmt.Errorf("update user %s: %w", userID, err)
	}
	if !found {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// ReportInput names the reported content.
type ReportInput struct {
	ContentID      string `json:"contentId"`
	ContentType    string `json:"contentType"`
	ReportedUserID string `json:"reportedUserId"`
	Reason         string `json:"reason"`
}

// ReportContent files a pending report for moderators.
func (s *Service) ReportContent(ctx context.Context, reporterID string, in ReportInput) (*store.Report, error) {
	if in.ContentType != "ranking" && in.ContentType != "comment" {
		return nil, fmt.Errorf("%w: content type must be ranking or comment", ErrInvalidReport)
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if in.ContentID == "" || in.ReportedUserID == "" || in.Reason == "" {
		return nil, fmt.Errorf("%w: content, user and reason are required", ErrInvalidReport)
	}

	now := s.now()
	report := &store.Report{
		ContentID:      in.ContentID,
		ContentType:    in.ContentType,
		ReportedUserID: in.ReportedUserID,
		ReporterID:     reporterID,
		Reason:         in.Reason,
		Status:         store.ReportPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.log.Info().
		Str("report", report.ID).
		Str("content", in.ContentID).
		Str("type", in.ContentType).
		Msg("content reported")
	return report, nil
}

func (s *Service) ListReports(ctx context.Context, status store.ReportStatus) ([]*store.Report, error) {
	reports, err := s.store.ListReports(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}
