package webapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/events"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

type eventPayload struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"omitempty,max=5000"`
	Category    string  `json:"category" validate:"required,max=50"`
	StartAt     string  `json:"start_at" validate:"required"`
	EndAt       string  `json:"end_at"`
	Online      bool    `json:"online"`
	Location    string  `json:"location" validate:"omitempty,max=200"`
	OnlineURL   string  `json:"online_url" validate:"omitempty,url"`
	Capacity    int     `json:"capacity" validate:"min=0"`
	Organizer   string  `json:"organizer" validate:"omitempty,max=100"`
	Image       string  `json:"image" validate:"omitempty,max=1024"`
	Price       float64 `json:"price" validate:"min=0"`
}

// EventView adds the caller specific fields to an event
type EventView struct {
	domain.Event
	SpotsLeft    int  `json:"spots_left"`
	Unlimited    bool `json:"unlimited"`
	IsRegistered bool `json:"is_registered"`
}

func registerEventRoutes() {
	webserver.ApiGET("/events", listEvents)
	webserver.ApiGET("/events/:id", getEvent)
	webserver.ApiPOST("/events", createEvent, webserver.RequireRole(domain.RoleAdmin))
	webserver.ApiDELETE("/events/:id", deleteEvent, webserver.RequireRole(domain.RoleAdmin))
	webserver.ApiPOST("/events/:id/register", registerForEvent, webserver.RequireAuth)
	webserver.ApiDELETE("/events/:id/register", unregisterFromEvent, webserver.RequireAuth)
}

func eventView(c echo.Context, store *events.Store, e domain.Event) EventView {
	v := EventView{Event: e, SpotsLeft: e.SpotsLeft(), Unlimited: e.Unlimited()}
	if claims := webserver.CurrentClaims(c); claims != nil {
		v.IsRegistered = store.IsRegistered(e.ID, claims.UserID)
	}
	return v
}

// parseDate accepts the loose formats dateparse understands in the server location
func parseDate(c echo.Context, value string) (time.Time, error) {
	loc, err := time.LoadLocation(GetAppContext(c).Config().System.Location)
	if err != nil {
		loc = time.UTC
	}
	return dateparse.ParseIn(strings.TrimSpace(value), loc)
}

func listEvents(c echo.Context) error {
	f := events.Filter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Query:    strings.TrimSpace(c.QueryParam("q")),
	}
	if v := c.QueryParam("upcoming"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid upcoming flag", nil)
		}
		f.Upcoming = b
	}
	if v := c.QueryParam("online"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid online flag", nil)
		}
		f.Online = &b
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := parseDate(c, v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Unrecognised from date", v)
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := parseDate(c, v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Unrecognised to date", v)
		}
		f.To = t
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}

	store := GetAppContext(c).EventStore()
	list := store.List(f)
	views := make([]EventView, 0, len(list))
	for _, e := range list {
		views = append(views, eventView(c, store, e))
	}
	return ok(c, views)
}

func getEvent(c echo.Context) error {
	store := GetAppContext(c).EventStore()
	e, err := store.Get(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusNotFound, "EVENT_NOT_FOUND", "Event not found", nil)
	}
	return ok(c, eventView(c, store, e))
}

func createEvent(c echo.Context) error {
	var payload eventPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	start, err := parseDate(c, payload.StartAt)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Unrecognised start_at", payload.StartAt)
	}
	var end time.Time
	if payload.EndAt != "" {
		if end, err = parseDate(c, payload.EndAt); err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Unrecognised end_at", payload.EndAt)
		}
	}

	e, err := GetAppContext(c).EventStore().Add(domain.Event{
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		Category:    strings.ToLower(strings.TrimSpace(payload.Category)),
		StartAt:     start,
		EndAt:       end,
		Online:      payload.Online,
		Location:    payload.Location,
		OnlineURL:   payload.OnlineURL,
		Capacity:    payload.Capacity,
		Organizer:   payload.Organizer,
		Image:       payload.Image,
		Price:       payload.Price,
	})
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_EVENT", err.Error(), nil)
	}
	claims := webserver.CurrentClaims(c)
	GetAppContext(c).AddAuditLog(claims.Email, c.RealIP(), "event_create", e.ID+" "+e.Title)
	return created(c, "Event created", e)
}

func deleteEvent(c echo.Context) error {
	id := c.Param("id")
	if err := GetAppContext(c).EventStore().Remove(id); err != nil {
		return fail(c, http.StatusNotFound, "EVENT_NOT_FOUND", "Event not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

// eventFailure maps store errors to responses
func eventFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		return fail(c, http.StatusNotFound, "EVENT_NOT_FOUND", "Event not found", nil)
	case errors.Is(err, events.ErrEventFull):
		return fail(c, http.StatusConflict, "EVENT_FULL", "This event is fully booked", nil)
	case errors.Is(err, events.ErrAlreadyRegistered):
		return fail(c, http.StatusConflict, "ALREADY_REGISTERED", "You are already registered for this event", nil)
	case errors.Is(err, events.ErrNotRegistered):
		return fail(c, http.StatusNotFound, "NOT_REGISTERED", "You are not registered for this event", nil)
	case errors.Is(err, events.ErrEventEnded):
		return fail(c, http.StatusBadRequest, "EVENT_ENDED", "This event has already ended", nil)
	default:
		return fail(c, http.StatusInternalServerError, "EVENT_ERROR", err.Error(), nil)
	}
}

func registerForEvent(c echo.Context) error {
	user, err := currentUser(c)
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	appCtx := GetAppContext(c)
	store := appCtx.EventStore()
	e, err := store.Register(c.Param("id"), user.ID)
	if err != nil {
		return eventFailure(c, err)
	}
	appCtx.Publish(domain.TopicEventRegistered, *user, e)
	return okMsg(c, "Registered for "+e.Title, eventView(c, store, e))
}

func unregisterFromEvent(c echo.Context) error {
	claims := webserver.CurrentClaims(c)
	store := GetAppContext(c).EventStore()
	e, err := store.Unregister(c.Param("id"), claims.UserID)
	if err != nil {
		return eventFailure(c, err)
	}
	return okMsg(c, "Registration cancelled", eventView(c, store, e))
}
