// Package configure serves the global configuration page and its JSON API.
//
// The page shows every section the signed in user may see as one form.
// A submission binds and saves exactly those sections, so fields of hidden
// sections in a forged request are ignored.
package configure

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/controller/setting"
	"github.com/ExtMailer/ExtMailer/internal/globalconfig"
	"github.com/ExtMailer/ExtMailer/internal/validation"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	"github.com/ExtMailer/ExtMailer/internal/web/navigation"
)

const (
	// Path is the configuration page.
	Path = handler.HomePath

	// APIPath is the root of the JSON API.
	APIPath = "/api/configure"

	// View is the page template.
	View = "configure"

	defaultRevisionLimit = 20
	maxRevisionLimit     = 100
)

var (
	// ErrNothingToConfigure is shown to users who see no section.
	ErrNothingToConfigure = errors.New("you are not allowed to change any global configuration")

	errInternal = errors.New("internal server error")
)

// SectionView is what the template renders for one section.
type SectionView struct {
	ID          string
	DisplayName string
	Value       any
	// FieldErrors maps form field names to messages. The "" key holds
	// errors that belong to no single field.
	FieldErrors map[string]string
}

// SectionInfo describes a visible section in the JSON API.
type SectionInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Ordinal     int    `json:"ordinal"`
	Permission  string `json:"permission"`
	Fallback    bool   `json:"fallback"`
}

// Revision is one entry of a section history in the JSON API.
type Revision struct {
	ID        string          `json:"id"`
	UserID    uint64          `json:"userId"`
	CreatedAt time.Time       `json:"createdAt"`
	Value     json.RawMessage `json:"value"`
}

// Service is the configure handler service.
type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	registry *globalconfig.Registry
}

// Handler is the configure handler.
var Handler = Service{}

// Init registers the page and API routes.
func (s *Service) Init(
	app *fiber.App, cfg *config.Config, db *gorm.DB, registry *globalconfig.Registry, authz *auth.Service,
) error {
	if app == nil || cfg == nil || db == nil || registry == nil || authz == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg) //nolint:err113
	}

	s.cfg = cfg
	s.db = db
	s.registry = registry

	app.Get(Path, s.Get)
	app.Post(Path, s.Post)

	api := app.Group(APIPath)
	api.Get("/sections", s.ListSections)
	api.Get("/:id", s.GetSection)
	api.Get("/:id/revisions", auth.RequirePermission(authz, auth.PermOverallAdminister), s.Revisions)

	return nil
}

func (s *Service) render(c *fiber.Ctx, status int, views []SectionView, err error) error {
	nav := navigation.NewContext("Global Configuration", "").
		AddBreadcrumb("Home", handler.RootPath).
		AddBreadcrumb("Configure", Path)

	for _, v := range views {
		nav.AddMenu(v.ID, v.DisplayName, "#"+v.ID)
	}

	data := fiber.Map{
		"Title":      s.cfg.Title,
		"Navigation": nav,
		"Sections":   views,
		"Saved":      c.Query("saved") == "1",
	}

	if err != nil {
		data["error"] = err.Error()
	}

	return c.Status(status).Render(View, data, handler.BaseLayout)
}

// Get renders every visible section with its stored value.
func (s *Service) Get(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	sections, err := s.registry.VisibleTo(userID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to evaluate sections")

		return s.render(c, fiber.StatusInternalServerError, nil, errInternal)
	}

	if len(sections) == 0 {
		return s.render(c, fiber.StatusForbidden, nil, ErrNothingToConfigure)
	}

	views := make([]SectionView, 0, len(sections))

	for _, sec := range sections {
		value, errLoad := sec.Current(s.db)
		if errLoad != nil {
			log.Error().Err(errLoad).Str("section", sec.ID()).Msg("failed to load section")

			return s.render(c, fiber.StatusInternalServerError, nil, errInternal)
		}

		views = append(views, SectionView{ID: sec.ID(), DisplayName: sec.DisplayName(), Value: value})
	}

	return s.render(c, fiber.StatusOK, views, nil)
}

// Post submits the form. Invalid submissions render the page again with
// the submitted values and their errors and nothing is saved.
func (s *Service) Post(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	sub, err := s.registry.Submit(userID, c.BodyParser)

	var submitErr *globalconfig.SubmitError

	switch {
	case errors.As(err, &submitErr):
		return s.render(c, fiber.StatusUnprocessableEntity, submittedViews(sub, submitErr), submitErr)
	case err != nil:
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to save global configuration")

		return s.render(c, fiber.StatusInternalServerError, nil, errInternal)
	case len(sub.Sections) == 0:
		return s.render(c, fiber.StatusForbidden, nil, ErrNothingToConfigure)
	}

	return c.Redirect(Path+"?saved=1", fiber.StatusSeeOther)
}

func submittedViews(sub *globalconfig.Submission, submitErr *globalconfig.SubmitError) []SectionView {
	views := make([]SectionView, 0, len(sub.Sections))

	for _, sec := range sub.Sections {
		views = append(views, SectionView{
			ID:          sec.ID(),
			DisplayName: sec.DisplayName(),
			Value:       sub.Values[sec.ID()],
			FieldErrors: fieldErrors(submitErr.Sections[sec.ID()]),
		})
	}

	return views
}

func fieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	fes := validation.Errors(err)
	if fes == nil {
		return map[string]string{"": err.Error()}
	}

	out := make(map[string]string, len(fes))
	for _, fe := range fes {
		out[fe.Field] = fe.String()
	}

	return out
}

// ListSections returns the sections visible to the caller, an empty list
// for read only users.
func (s *Service) ListSections(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	out := make([]SectionInfo, 0)

	for _, sec := range s.registry.Sections() {
		ev, err := s.registry.Evaluate(userID, sec)
		if err != nil {
			log.Error().Err(err).Str("section", sec.ID()).Msg("failed to evaluate section")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errInternal.Error()})
		}

		if ev.Decision != globalconfig.Visible {
			continue
		}

		out = append(out, SectionInfo{
			ID:          sec.ID(),
			DisplayName: sec.DisplayName(),
			Ordinal:     sec.Ordinal(),
			Permission:  ev.Permission,
			Fallback:    ev.Fallback,
		})
	}

	return c.JSON(out)
}

// GetSection returns the stored value of one visible section.
func (s *Service) GetSection(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	sec, err := s.registry.VisibleSection(userID, c.Params("id"))
	if errors.Is(err, globalconfig.ErrSectionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to evaluate section")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errInternal.Error()})
	}

	value, err := sec.Current(s.db)
	if err != nil {
		log.Error().Err(err).Str("section", sec.ID()).Msg("failed to load section")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errInternal.Error()})
	}

	return c.JSON(fiber.Map{"id": sec.ID(), "value": value})
}

// revisionLimit bounds the limit query parameter. Zero or negative values
// mean the default, never the whole history.
func revisionLimit(n int) int {
	switch {
	case n <= 0:
		return defaultRevisionLimit
	case n > maxRevisionLimit:
		return maxRevisionLimit
	default:
		return n
	}
}

// Revisions returns the submission history of a section, newest first.
func (s *Service) Revisions(c *fiber.Ctx) error {
	sec, ok := s.registry.Section(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": globalconfig.ErrSectionNotFound.Error()})
	}

	revs, err := setting.Revisions(s.db, sec.ID(), revisionLimit(c.QueryInt("limit", defaultRevisionLimit)))
	if err != nil {
		log.Error().Err(err).Str("section", sec.ID()).Msg("failed to list revisions")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errInternal.Error()})
	}

	out := make([]Revision, 0, len(revs))
	for _, r := range revs {
		out = append(out, Revision{ID: r.ID, UserID: r.UserID, CreatedAt: r.CreatedAt, Value: r.Value})
	}

	return c.JSON(out)
}
