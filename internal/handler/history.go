package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/active-breaks/internal/history"
    "github.com/iliyamo/active-breaks/internal/middleware"
)

// HistoryHandler serves break sessions and daily records.
type HistoryHandler struct {
    History *history.Service
}

func NewHistoryHandler(s *history.Service) *HistoryHandler {
    return &HistoryHandler{History: s}
}

// ListSessions handles GET /history/sessions?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *HistoryHandler) ListSessions(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    from, to, err := parseRange(c)
    if err != nil {
        return badRequest(c, "from and to must be YYYY-MM-DD dates")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    list, err := h.History.ListSessions(ctx, u.ID, from, to)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]sessionResp, 0, len(list))
    for _, s := range list {
        out = append(out, toSessionResp(s))
    }
    return c.JSON(http.StatusOK, out)
}

// CreateSession handles POST /history/sessions.
func (h *HistoryHandler) CreateSession(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    var req createSessionReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    day, err := parseDate(req.Date)
    if err != nil {
        return badRequest(c, "date must be YYYY-MM-DD")
    }
    started, err := parseTimestamp(req.StartedAt)
    if err != nil {
        return badRequest(c, "startedAt must be an ISO 8601 timestamp")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sess, err := h.History.CreateSession(ctx, u.ID, history.NewSession{
        Date:                   day,
        StartedAt:              started,
        ExerciseIDs:            req.ExerciseIDs,
        DurationPlannedSeconds: req.DurationPlannedSeconds,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toSessionResp(sess))
}

// CompleteSession handles PATCH /history/sessions/:id/complete.
func (h *HistoryHandler) CompleteSession(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    var req completeSessionReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    completed, err := parseTimestamp(req.CompletedAt)
    if err != nil {
        return badRequest(c, "completedAt must be an ISO 8601 timestamp")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sess, err := h.History.CompleteSession(ctx, u.ID, c.Param("id"), completed, req.DurationActualSeconds)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toSessionResp(sess))
}

// ListDailyRecords handles GET /history/daily-records?from=&to=.
func (h *HistoryHandler) ListDailyRecords(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    from, to, err := parseRange(c)
    if err != nil {
        return badRequest(c, "from and to must be YYYY-MM-DD dates")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    list, err := h.History.ListDailyRecords(ctx, u.ID, from, to)
    if err != nil {
        return writeError(c, err)
    }
    out := make([]dailyRecordResp, 0, len(list))
    for _, r := range list {
        out = append(out, toDailyRecordResp(r))
    }
    return c.JSON(http.StatusOK, out)
}

// UpdateExpected handles PUT /history/daily-records/:date/expected.
func (h *HistoryHandler) UpdateExpected(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    day, err := parseDate(c.Param("date"))
    if err != nil {
        return badRequest(c, "date must be YYYY-MM-DD")
    }
    var req expectedReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.SessionsExpected == nil || *req.SessionsExpected < 0 {
        return badRequest(c, "sessionsExpected must be a non-negative integer")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rec, err := h.History.UpdateExpected(ctx, u.ID, day, *req.SessionsExpected)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toDailyRecordResp(rec))
}

func parseRange(c echo.Context) (time.Time, time.Time, error) {
    from, err := parseDate(c.QueryParam("from"))
    if err != nil {
        return time.Time{}, time.Time{}, err
    }
    to, err := parseDate(c.QueryParam("to"))
    if err != nil {
        return time.Time{}, time.Time{}, err
    }
    return from, to, nil
}
