package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/styleguard/styleguard/internal/events"
	"github.com/styleguard/styleguard/internal/logging"
	"github.com/styleguard/styleguard/internal/models"
	"github.com/styleguard/styleguard/internal/repo"
)

var (
	ErrNotFound       = errors.New("correction not found")
	ErrSearchDisabled = errors.New("search is not configured")
)

const sideEffectTimeout = 5 * time.Second

type CorrectionStore interface {
	InsertCorrection(ctx context.Context, c *models.Correction) error
	ListCorrections(ctx context.Context, userID uint, offset, limit int) ([]models.Correction, error)
	CountCorrections(ctx context.Context, userID uint) (int64, error)
	FindCorrection(ctx context.Context, id, userID uint) (*models.Correction, error)
	DeleteCorrection(ctx context.Context, id, userID uint) (bool, error)
}

type CorrectionIndex interface {
	IndexCorrection(ctx context.Context, c *models.Correction) error
	DeleteCorrection(ctx context.Context, id uint) error
	SearchCorrections(ctx context.Context, userID uint, query string, from, size int) (int64, []models.Correction, error)
}

type TextCorrector interface {
	CorrectDetailed(ctx context.Context, text string) (CorrectionResult, error)
}

type CorrectionService struct {
	Store     CorrectionStore
	Corrector TextCorrector
	Index     CorrectionIndex
	Events    EventPublisher
}

type Page struct {
	Items []models.Correction
	Total int64
	From  int
	Size  int
}

// Submit persists nothing when the model call fails.
func (s *CorrectionService) Submit(ctx context.Context, user *models.User, text string) (*models.Correction, error) {
	l := logging.FromContext(ctx).With("svc", "corrections.submit", "user_id", user.ID)

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: original_text is required", ErrValidation)
	}

	res, err := s.Corrector.CorrectDetailed(ctx, text)
	if err != nil {
		l.Warn("correction_failed", "error", err)
		return nil, err
	}

	rec := &models.Correction{
		UserID:        user.ID,
		OriginalText:  text,
		CorrectedText: res.Text,
		Language:      res.Language,
	}
	if err := s.Store.InsertCorrection(ctx, rec); err != nil {
		l.Error("correction_persist_failed", "status", 500, "error", err)
		return nil, err
	}

	s.afterCreate(ctx, rec, res.Fallback)
	l.Info("correction_created", "correction_id", rec.ID, "language", rec.Language, "fallback", res.Fallback)
	return rec, nil
}

func (s *CorrectionService) List(ctx context.Context, user *models.User, from, size int) (Page, error) {
	items, err := s.Store.ListCorrections(ctx, user.ID, from, size)
	if err != nil {
		return Page{}, err
	}
	total, err := s.Store.CountCorrections(ctx, user.ID)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, From: from, Size: size}, nil
}

func (s *CorrectionService) Get(ctx context.Context, user *models.User, id uint) (*models.Correction, error) {
	c, err := s.Store.FindCorrection(ctx, id, user.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CorrectionService) Delete(ctx context.Context, user *models.User, id uint) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "corrections.delete", "user_id", user.ID)

	ok, err := s.Store.DeleteCorrection(ctx, id, user.ID)
	if err != nil || !ok {
		return ok, err
	}

	s.afterDelete(ctx, user.ID, id)
	l.Info("correction_deleted", "correction_id", id)
	return true, nil
}

func (s *CorrectionService) Search(ctx context.Context, user *models.User, query string, from, size int) (Page, error) {
	if s.Index == nil {
		return Page{}, ErrSearchDisabled
	}
	if strings.TrimSpace(query) == "" {
		return Page{}, fmt.Errorf("%w: q is required", ErrValidation)
	}
	total, items, err := s.Index.SearchCorrections(ctx, user.ID, query, from, size)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, From: from, Size: size}, nil
}

func (s *CorrectionService) afterCreate(ctx context.Context, rec *models.Correction, fallback bool) {
	l := logging.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.Index != nil {
		if err := s.Index.IndexCorrection(ctx, rec); err != nil {
			l.Warn("search_index_failed", "correction_id", rec.ID, "error", err)
		}
	}
	s.publish(ctx, rec.UserID, "correction_created", map[string]any{
		"correction_id": rec.ID,
		"user_id":       rec.UserID,
		"language":      rec.Language,
		"fallback":      fallback,
	})
}

func (s *CorrectionService) afterDelete(ctx context.Context, userID, id uint) {
	l := logging.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.Index != nil {
		if err := s.Index.DeleteCorrection(ctx, id); err != nil {
			l.Warn("search_delete_failed", "correction_id", id, "error", err)
		}
	}
	s.publish(ctx, userID, "correction_deleted", map[string]any{
		"correction_id": id,
		"user_id":       userID,
	})
}

func (s *CorrectionService) publish(ctx context.Context, userID uint, typ string, payload any) {
	if s.Events == nil {
		return
	}
	key := strconv.FormatUint(uint64(userID), 10)
	if err := s.Events.PublishEvent(ctx, events.TopicCorrections, key, events.NewEvent(typ, payload)); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicCorrections, "type", typ, "error", err)
	}
}
