package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleHealth(c echo.Context) error {
	if s.db != nil {
		if err := s.db.PingContext(c.Request().Context()); err != nil {
			s.logger.Warn(c.Request().Context(), "health_check_failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{Message: "Good Habits API", Version: common.Version})
}

func (s *Server) handleListHabits(c echo.Context) error {
	list, err := s.stats.ListHabitsWithStats(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]HabitWithStatsResponse, 0, len(list))
	for _, h := range list {
		resp = append(resp, toHabitWithStatsResponse(h))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateHabit(c echo.Context) error {
	var req HabitCreateRequest
	if err := c.Bind(&req); err != nil {
		return invalid("invalid request body")
	}

	h, err := s.habits.Create(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toHabitResponse(h))
}

func (s *Server) handleGetHabit(c echo.Context) error {
	h, err := s.habits.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHabitResponse(h))
}

func (s *Server) handleHabitStats(c echo.Context) error {
	h, err := s.stats.HabitWithStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHabitWithStatsResponse(h))
}

func (s *Server) handleUpdateHabit(c echo.Context) error {
	var req HabitUpdateRequest
	if err := c.Bind(&req); err != nil {
		return invalid("invalid request body")
	}

	h, err := s.habits.Update(c.Request().Context(), c.Param("id"), models.HabitUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHabitResponse(h))
}

func (s *Server) handleDeleteHabit(c echo.Context) error {
	if err := s.habits.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleComplete(c echo.Context) error {
	var req CompletionCreateRequest
	if err := c.Bind(&req); err != nil {
		return invalid("invalid request body")
	}

	var date datex.Date
	if req.Date != nil {
		date = *req.Date
	}

	comp, err := s.habits.MarkCompletion(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CompletionResponse{HabitID: comp.HabitID, Date: comp.Date, Completed: true})
}

func (s *Server) handleUncomplete(c echo.Context) error {
	date, err := pathDate(c)
	if err != nil {
		return err
	}
	if err := s.habits.UnmarkCompletion(c.Request().Context(), c.Param("id"), date); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListCompletions(c echo.Context) error {
	r, err := queryRange(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	list, err := s.habits.ListCompletions(c.Request().Context(), id, r)
	if err != nil {
		return err
	}

	resp := CompletionsListResponse{HabitID: id, Completions: make([]datex.Date, 0, len(list))}
	for _, comp := range list {
		resp.Completions = append(resp.Completions, comp.Date)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateAbsence(c echo.Context) error {
	var req AbsenceCreateRequest
	if err := c.Bind(&req); err != nil {
		return invalid("invalid request body")
	}

	var date datex.Date
	if req.Date != nil {
		date = *req.Date
	}

	a, err := s.habits.MarkAbsence(c.Request().Context(), c.Param("id"), date, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, AbsenceResponse{HabitID: a.HabitID, Date: a.Date, Reason: a.Reason})
}

func (s *Server) handleDeleteAbsence(c echo.Context) error {
	date, err := pathDate(c)
	if err != nil {
		return err
	}
	if err := s.habits.UnmarkAbsence(c.Request().Context(), c.Param("id"), date); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListAbsences(c echo.Context) error {
	r, err := queryRange(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	list, err := s.habits.ListAbsences(c.Request().Context(), id, r)
	if err != nil {
		return err
	}

	resp := AbsencesListResponse{HabitID: id, Absences: make([]AbsenceItem, 0, len(list))}
	for _, a := range list {
		resp.Absences = append(resp.Absences, AbsenceItem{Date: a.Date, Reason: a.Reason})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateBackup(c echo.Context) error {
	if s.backups == nil {
		return common.ErrorBackupsDisabled
	}

	key, url, err := s.backups.Create(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, BackupResponse{Key: key, URL: url})
}

func pathDate(c echo.Context) (datex.Date, error) {
	d, err := datex.Parse(c.Param("date"))
	if err != nil {
		return datex.Date{}, invalid("date must be YYYY-MM-DD")
	}
	return d, nil
}

func queryRange(c echo.Context) (models.DateRange, error) {
	var r models.DateRange

	if v := c.QueryParam("start_date"); v != "" {
		d, err := datex.Parse(v)
		if err != nil {
			return r, invalid("start_date must be YYYY-MM-DD")
		}
		r.Start = d
	}
	if v := c.QueryParam("end_date"); v != "" {
		d, err := datex.Parse(v)
		if err != nil {
			return r, invalid("end_date must be YYYY-MM-DD")
		}
		r.End = d
	}

	return r, nil
}
