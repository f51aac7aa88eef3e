// Package globalconfig keeps the registry of global configuration sections
// and decides which of them a user may see and change.
package globalconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/controller/setting"
	"github.com/ExtMailer/ExtMailer/internal/metrics"
)

// Decision is the outcome of evaluating a section for a user.
type Decision int

const (
	// Hidden means the user lacks the permission guarding the section.
	Hidden Decision = iota
	// Visible means the user may view and submit the section.
	Visible
	// NotApplicable means this installation does not define the guarding
	// permission and the section names no usable fallback.
	NotApplicable
)

func (d Decision) String() string {
	switch d {
	case Visible:
		return "visible"
	case NotApplicable:
		return "not_applicable"
	default:
		return "hidden"
	}
}

var (
	// ErrDuplicateSection is returned when two sections share an id.
	ErrDuplicateSection = errors.New("duplicate section id")
	// ErrSectionNotFound is returned for unknown or invisible section ids.
	ErrSectionNotFound = errors.New("section not found")

	errCandidateType = errors.New("unexpected candidate type")
)

// Authorizer answers the permission questions the registry asks.
type Authorizer interface {
	Defined(permission string) (bool, error)
	HasPermission(userID uint64, permission string) (bool, error)
}

// Section is one block of the global configuration page.
type Section interface {
	// ID is the settings key and the prefix of the section's form fields.
	ID() string
	DisplayName() string
	// Ordinal orders sections on the page, lowest first.
	Ordinal() int
	RequiredPermission() string
	// FallbackPermission guards the section when RequiredPermission is not
	// defined by the installation. Empty means none.
	FallbackPermission() string
	// Current returns the stored value or its defaults.
	Current(db *gorm.DB) (any, error)
	// Bind applies a submission to the current value and validates it.
	// The candidate is returned even when validation fails.
	Bind(db *gorm.DB, bind func(any) error) (any, error)
	// Save stores a candidate returned by Bind.
	Save(tx *gorm.DB, candidate any) error
}

// Evaluation explains a Decision.
type Evaluation struct {
	Section    Section
	Decision   Decision
	Permission string // the permission that was checked, empty when NotApplicable
	Fallback   bool   // Permission is the fallback
}

// Registry holds the sections of this installation.
type Registry struct {
	db       *gorm.DB
	authz    Authorizer
	sections []Section
}

// New creates a registry with the given sections.
func New(db *gorm.DB, authz Authorizer, sections ...Section) (*Registry, error) {
	r := &Registry{db: db, authz: authz}

	for _, s := range sections {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a section.
func (r *Registry) Register(s Section) error {
	if _, ok := r.Section(s.ID()); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSection, s.ID())
	}

	r.sections = append(r.sections, s)
	sort.SliceStable(r.sections, func(i, j int) bool {
		if r.sections[i].Ordinal() != r.sections[j].Ordinal() {
			return r.sections[i].Ordinal() < r.sections[j].Ordinal()
		}

		return r.sections[i].ID() < r.sections[j].ID()
	})

	return nil
}

// Sections returns every registered section in page order.
func (r *Registry) Sections() []Section {
	return append([]Section(nil), r.sections...)
}

// Section looks a section up by id regardless of visibility.
func (r *Registry) Section(id string) (Section, bool) {
	for _, s := range r.sections {
		if s.ID() == id {
			return s, true
		}
	}

	return nil, false
}

// Evaluate decides whether the user may see the section.
// An undefined permission is never an error: the fallback is checked
// instead, and without one the section is NotApplicable.
func (r *Registry) Evaluate(userID uint64, s Section) (Evaluation, error) {
	ev := Evaluation{Section: s}

	perm, fallback, err := r.guard(s)
	if err != nil {
		return ev, err
	}

	if perm == "" {
		ev.Decision = NotApplicable
		metrics.SectionDecisions.WithLabelValues(s.ID(), ev.Decision.String()).Inc()

		return ev, nil
	}

	ev.Permission, ev.Fallback = perm, fallback

	has, err := r.authz.HasPermission(userID, perm)
	if err != nil {
		return ev, fmt.Errorf("evaluate section %s: %w", s.ID(), err)
	}

	if has {
		ev.Decision = Visible
	}

	metrics.SectionDecisions.WithLabelValues(s.ID(), ev.Decision.String()).Inc()

	return ev, nil
}

// guard returns the permission to check for s, or "" when none is defined.
func (r *Registry) guard(s Section) (string, bool, error) {
	required := s.RequiredPermission()

	ok, err := r.authz.Defined(required)
	if err != nil {
		return "", false, fmt.Errorf("evaluate section %s: %w", s.ID(), err)
	}

	if ok {
		return required, false, nil
	}

	fallback := s.FallbackPermission()
	if fallback != "" {
		if ok, err = r.authz.Defined(fallback); err != nil {
			return "", false, fmt.Errorf("evaluate section %s: %w", s.ID(), err)
		}
	}

	if !ok {
		log.Warn().Str("section", s.ID()).Str("permission", required).
			Msg("permission not defined by this installation, section not applicable")

		return "", false, nil
	}

	log.Debug().Str("section", s.ID()).Str("permission", required).Str("fallback", fallback).
		Msg("permission not defined, using fallback")

	return fallback, true, nil
}

// VisibleTo returns the sections the user may see, in page order.
func (r *Registry) VisibleTo(userID uint64) ([]Section, error) {
	visible := make([]Section, 0, len(r.sections))

	for _, s := range r.sections {
		ev, err := r.Evaluate(userID, s)
		if err != nil {
			return nil, err
		}

		if ev.Decision == Visible {
			visible = append(visible, s)
		}
	}

	return visible, nil
}

// VisibleSection returns the section if the user may see it, ErrSectionNotFound otherwise.
func (r *Registry) VisibleSection(userID uint64, id string) (Section, error) {
	s, ok := r.Section(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}

	ev, err := r.Evaluate(userID, s)
	if err != nil {
		return nil, err
	}

	if ev.Decision != Visible {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}

	return s, nil
}

// SubmitError carries the per section errors of a rejected submission.
type SubmitError struct {
	Sections map[string]error
}

func (e *SubmitError) Error() string {
	ids := make([]string, 0, len(e.Sections))
	for id := range e.Sections {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return fmt.Sprintf("invalid configuration in sections %v", ids)
}

// Submission is the outcome of Submit. Values holds the candidate of every
// bound section, valid or not, so a form can be rendered again.
type Submission struct {
	Sections []Section
	Values   map[string]any
}

// Submit binds the submission to every section the user may see and saves
// them together. Nothing is saved if any section fails to bind or validate;
// the error is then a *SubmitError. Each saved section gets a revision.
func (r *Registry) Submit(userID uint64, bind func(any) error) (*Submission, error) {
	visible, err := r.VisibleTo(userID)
	if err != nil {
		return nil, err
	}

	sub := &Submission{Sections: visible, Values: make(map[string]any, len(visible))}
	failed := map[string]error{}

	for _, s := range visible {
		candidate, errBind := s.Bind(r.db, bind)
		sub.Values[s.ID()] = candidate

		if errBind != nil {
			failed[s.ID()] = errBind

			metrics.Submissions.WithLabelValues(s.ID(), metrics.ResultInvalid).Inc()
		}
	}

	if len(failed) > 0 {
		return sub, &SubmitError{Sections: failed}
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		for _, s := range visible {
			candidate := sub.Values[s.ID()]

			if err := s.Save(tx, candidate); err != nil {
				return fmt.Errorf("save section %s: %w", s.ID(), err)
			}

			snapshot, err := json.Marshal(candidate)
			if err != nil {
				return fmt.Errorf("snapshot section %s: %w", s.ID(), err)
			}

			if _, err = setting.AddRevision(tx, s.ID(), userID, snapshot); err != nil {
				return fmt.Errorf("revision of section %s: %w", s.ID(), err)
			}
		}

		return nil
	})

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}

	for _, s := range visible {
		metrics.Submissions.WithLabelValues(s.ID(), result).Inc()
	}

	if err != nil {
		return sub, err
	}

	log.Info().Uint64("user_id", userID).Int("sections", len(visible)).Msg("global configuration saved")

	return sub, nil
}
