package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/kharkivmetro/internal/calendar"
	"github.com/yourorg/kharkivmetro/internal/itinerary"
	"github.com/yourorg/kharkivmetro/internal/models"
	"github.com/yourorg/kharkivmetro/internal/planner"
	"github.com/yourorg/kharkivmetro/internal/validation"
)

// Route plans the earliest-arrival trip between two stations.
// GET /api/route?from=&to=&time=&date=&day_type=&lang=&compact=
func (h *MetroHandler) Route(c *fiber.Ctx) error {
	var q models.RouteQuery
	if err := c.QueryParser(&q); err != nil {
		return respondError(c, h.lang, &validation.QueryError{Field: "query", Message: err.Error()})
	}
	if err := validation.Struct(q); err != nil {
		return respondError(c, h.lang, err)
	}
	lang, err := validation.Language(q.Lang, h.lang)
	if err != nil {
		return respondError(c, h.lang, err)
	}
	if q.Time != "" {
		if _, err := validation.Clock(q.Time); err != nil {
			return respondError(c, lang, err)
		}
	}
	day, start, err := calendar.Resolve(q.DayType, q.Date, q.Time, h.loc, h.now())
	if err != nil {
		return respondError(c, lang, &validation.QueryError{Field: "date", Value: q.Date, Message: err.Error()})
	}
	compact := h.compact
	if q.Compact != nil {
		compact = *q.Compact
	}

	snap, err := h.snapshot()
	if err != nil {
		return respondError(c, lang, err)
	}
	origin, err := station(snap, "from", q.From, lang)
	if err != nil {
		return respondError(c, lang, err)
	}
	dest, err := station(snap, "to", q.To, lang)
	if err != nil {
		return respondError(c, lang, err)
	}

	key := RouteKey{
		Version:     snap.Version,
		Origin:      origin.ID,
		Destination: dest.ID,
		DayType:     day,
		Start:       start,
		Language:    lang,
		Compact:     compact,
	}
	if h.routes != nil {
		if rec, ok := h.routes.Get(key); ok {
			return c.JSON(models.RouteResponse{Record: rec, Summary: itinerary.Summary(rec), Version: snap.Version, Cached: true})
		}
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	it, err := plan(ctx, snap.Planner, planner.Request{
		Origin:      origin.ID,
		Destination: dest.ID,
		DayType:     day,
		Start:       start,
	})
	if err != nil {
		return respondError(c, lang, err)
	}

	rec := itinerary.Format(snap.Network, it, itinerary.Options{Language: lang, Compact: compact})
	if h.routes != nil {
		h.routes.Set(key, rec)
	}
	log.Printf("🚇 [ROUTE] %s -> %s %s %s: %s", origin.ID, dest.ID, day, start, itinerary.Summary(rec))
	return c.JSON(models.RouteResponse{Record: rec, Summary: itinerary.Summary(rec), Version: snap.Version})
}

type planResult struct {
	it  *planner.Itinerary
	err error
}

// plan runs the search and gives up when ctx ends first.
func plan(ctx context.Context, p *planner.Planner, req planner.Request) (*planner.Itinerary, error) {
	done := make(chan planResult, 1)
	go func() {
		it, err := p.Plan(req)
		done <- planResult{it, err}
	}()
	select {
	case r := <-done:
		return r.it, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

