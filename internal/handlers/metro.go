package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/kharkivmetro/internal/calendar"
	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/itinerary"
	"github.com/yourorg/kharkivmetro/internal/metro"
	"github.com/yourorg/kharkivmetro/internal/models"
	"github.com/yourorg/kharkivmetro/internal/planner"
	"github.com/yourorg/kharkivmetro/internal/resolver"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
	"github.com/yourorg/kharkivmetro/internal/validation"
)

const suggestLimit = 5

// MetroHandler serves the read-only query endpoints. Every request reads
// the current snapshot once and uses it throughout.
type MetroHandler struct {
	store   *snapshot.Store
	routes  *RouteCache
	loc     *time.Location
	lang    metro.Language
	compact bool
	timeout time.Duration
	now     func() time.Time
}

// NewMetroHandler creates the handler. routes may be nil to disable caching.
func NewMetroHandler(store *snapshot.Store, routes *RouteCache, cfg config.AppConfig) (*MetroHandler, error) {
	loc, err := calendar.Location(cfg.Preferences.Timezone)
	if err != nil {
		return nil, err
	}
	lang, err := metro.ParseLanguage(cfg.Preferences.Language)
	if err != nil {
		lang = metro.LangUA
	}
	return &MetroHandler{
		store:   store,
		routes:  routes,
		loc:     loc,
		lang:    lang,
		compact: cfg.Preferences.Compact,
		timeout: cfg.Server.RequestTimeout,
		now:     time.Now,
	}, nil
}

// errNoSnapshot is returned before the first network has loaded.
var errNoSnapshot = errors.New("network data not loaded yet")

// stationError is a query that did not resolve to exactly one station.
type stationError struct {
	field  string
	query  string
	result resolver.Result
}

func (e *stationError) Error() string {
	return fmt.Sprintf("%s: %q is %s", e.field, e.query, e.result.Status)
}

func (h *MetroHandler) snapshot() (*snapshot.Snapshot, error) {
	snap := h.store.Current()
	if snap == nil {
		return nil, errNoSnapshot
	}
	return snap, nil
}

func (h *MetroHandler) language(c *fiber.Ctx) (metro.Language, error) {
	return validation.Language(c.Query("lang"), h.lang)
}

// station accepts a station id or any name the resolver understands.
func station(snap *snapshot.Snapshot, field, query string, lang metro.Language) (*metro.Station, error) {
	q, err := validation.StationQuery(query, field)
	if err != nil {
		return nil, err
	}
	res := snap.Resolver.Resolve(q, lang)
	if res.Status != resolver.Matched {
		return nil, &stationError{field: field, query: q, result: res}
	}
	return res.Station, nil
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *fiber.Ctx, lang metro.Language, err error) error {
	var (
		qe  *validation.QueryError
		ire *planner.InvalidRequestError
		se  *stationError
		ue  *planner.UnreachableError
	)
	switch {
	case errors.As(err, &qe):
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid request", Message: qe.Error()})
	case errors.As(err, &ire):
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid request", Message: ire.Field + ": " + ire.Message})
	case errors.As(err, &se):
		if se.result.Status == resolver.Ambiguous {
			return c.Status(fiber.StatusConflict).JSON(models.AmbiguousResponse{
				Error:      "ambiguous station",
				Field:      se.field,
				Query:      se.query,
				Candidates: candidates(se.result.Candidates, lang),
			})
		}
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error:   "station not found",
			Message: fmt.Sprintf("%s: no station matches %q", se.field, se.query),
		})
	case errors.As(err, &ue):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.UnreachableResponse{
			Error:   "no route",
			Reason:  string(ue.Reason),
			Message: itinerary.ClosedMessage(lang),
		})
	case errors.Is(err, errNoSnapshot):
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{Error: "not ready", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(models.ErrorResponse{Error: "timeout", Message: "route search took too long"})
	}
	log.Printf("❌ [ROUTE] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "internal error"})
}

func candidates(cs []resolver.Candidate, lang metro.Language) []models.CandidateDTO {
	out := make([]models.CandidateDTO, 0, len(cs))
	for _, cand := range cs {
		out = append(out, models.CandidateDTO{ID: cand.Station.ID, Name: cand.Station.Name(lang), Score: cand.Score})
	}
	return out
}

func stationDTO(net *metro.Network, st *metro.Station, lang metro.Language) models.StationDTO {
	return models.StationDTO{
		ID:            st.ID,
		Name:          st.Name(lang),
		NameUA:        st.Name(metro.LangUA),
		NameEN:        st.Name(metro.LangEN),
		Lines:         st.Lines,
		IsInterchange: net.IsInterchange(st.ID),
		TransfersTo:   net.InterchangesAt(st.ID),
	}
}

// ============================================================================
// STATIONS & LINES
// ============================================================================

// Lines lists every line with its stations in travel order.
// GET /api/lines?lang=
func (h *MetroHandler) Lines(c *fiber.Ctx) error {
	lang, err := h.language(c)
	if err != nil {
		return respondError(c, h.lang, err)
	}
	snap, err := h.snapshot()
	if err != nil {
		return respondError(c, lang, err)
	}
	net := snap.Network
	out := make([]models.LineDTO, 0, len(net.Lines()))
	for _, line := range net.Lines() {
		dto := models.LineDTO{ID: line.ID, Name: line.Name(lang), Color: line.Color}
		for _, id := range line.Stations {
			st, _ := net.Station(id)
			dto.Stations = append(dto.Stations, stationDTO(net, st, lang))
		}
		out = append(out, dto)
	}
	return c.JSON(out)
}

// Stations lists stations, optionally only those of one line.
// GET /api/stations?line=&lang=
func (h *MetroHandler) Stations(c *fiber.Ctx) error {
	lang, err := h.language(c)
	if err != nil {
		return respondError(c, h.lang, err)
	}
	snap, err := h.snapshot()
	if err != nil {
		return respondError(c, lang, err)
	}
	net := snap.Network

	var ids []metro.StationID
	if lineID := c.Query("line"); lineID != "" {
		if _, ok := net.Line(metro.LineID(lineID)); !ok {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "line not found", Message: lineID})
		}
		ids = net.StationsOnLine(metro.LineID(lineID))
	} else {
		for _, st := range net.Stations() {
			ids = append(ids, st.ID)
		}
	}
	out := make([]models.StationDTO, 0, len(ids))
	for _, id := range ids {
		st, _ := net.Station(id)
		out = append(out, stationDTO(net, st, lang))
	}
	return c.JSON(out)
}

// Resolve maps free text to a station and explains how.
// GET /api/stations/resolve?q=&lang=&limit=
func (h *MetroHandler) Resolve(c *fiber.Ctx) error {
	lang, err := h.language(c)
	if err != nil {
		return respondError(c, h.lang, err)
	}
	q, err := validation.StationQuery(c.Query("q"), "q")
	if err != nil {
		return respondError(c, lang, err)
	}
	limit, err := validation.Limit(c.Query("limit"), suggestLimit, 20)
	if err != nil {
		return respondError(c, lang, err)
	}
	snap, err := h.snapshot()
	if err != nil {
		return respondError(c, lang, err)
	}

	res := snap.Resolver.Resolve(q, lang)
	out := models.ResolveResponse{Query: q, Status: res.Status.String(), Tier: res.Tier.String()}
	switch res.Status {
	case resolver.Matched:
		dto := stationDTO(snap.Network, res.Station, lang)
		out.Station = &dto
	case resolver.Ambiguous:
		out.Candidates = candidates(res.Candidates, lang)
	default:
		out.Suggestions = candidates(snap.Resolver.Suggest(q, limit), lang)
		return c.Status(fiber.StatusNotFound).JSON(out)
	}
	return c.JSON(out)
}

// ============================================================================
// SCHEDULE
// ============================================================================

// Schedule is the departure board of one station.
// GET /api/schedule/:station?day_type=&date=&time=&lang=
// Without time the whole day is listed; open is evaluated against now.
func (h *MetroHandler) Schedule(c *fiber.Ctx) error {
	lang, err := h.language(c)
	if err != nil {
		return respondError(c, h.lang, err)
	}
	dayType, err := validation.DayType(c.Query("day_type"))
	if err != nil {
		return respondError(c, lang, err)
	}
	clock := c.Query("time")
	if clock != "" {
		if _, err := validation.Clock(clock); err != nil {
			return respondError(c, lang, err)
		}
	}
	day, tod, err := calendar.Resolve(string(dayType), c.Query("date"), clock, h.loc, h.now())
	if err != nil {
		return respondError(c, lang, &validation.QueryError{Field: "date", Value: c.Query("date"), Message: err.Error()})
	}
	snap, err := h.snapshot()
	if err != nil {
		return respondError(c, lang, err)
	}
	st, err := station(snap, "station", c.Params("station"), lang)
	if err != nil {
		return respondError(c, lang, err)
	}

	var from metro.TimeOfDay
	if clock != "" {
		from = tod
	}
	net := snap.Network
	out := models.BoardResponse{
		Station:    stationDTO(net, st, lang),
		DayType:    day,
		From:       from.String(),
		Open:       snap.Index.IsOpen(net, st.ID, day, tod),
		Directions: []models.BoardDirection{},
	}
	if w, ok := snap.Index.ServiceWindow(net, st.ID, day); ok {
		out.First = w.First.String()
		out.Last = w.Last.String()
	}
	for _, d := range snap.Index.Board(net, st.ID, day, from) {
		dir := models.BoardDirection{
			LineID:     d.Segment.Line,
			TowardsID:  d.Terminal,
			Departures: make([]string, 0, len(d.Departures)),
		}
		if line, ok := net.Line(d.Segment.Line); ok {
			dir.Line = line.Name(lang)
			dir.LineColor = line.Color
		}
		if term, ok := net.Station(d.Terminal); ok {
			dir.Towards = term.Name(lang)
		}
		if next, ok := net.Station(d.Segment.To); ok {
			dir.NextStop = next.Name(lang)
		}
		for _, t := range d.Departures {
			dir.Departures = append(dir.Departures, t.String())
		}
		out.Directions = append(out.Directions, dir)
	}
	return c.JSON(out)
}
