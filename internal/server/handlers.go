package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/oraculo"
	"github.com/labrasa/salesdash/internal/pipeline"
	"github.com/labrasa/salesdash/internal/report"
	"github.com/labrasa/salesdash/internal/store"
)

// MsgUnavailable is shown when the store cannot be read, as opposed to an empty period.
const MsgUnavailable = "data unavailable, try refresh"

// parseFilter reads from, to (YYYY-MM-DD) and repeated channel query parameters.
func parseFilter(c *gin.Context, loc *time.Location) (report.Filter, error) {
	var f report.Filter
	var err error
	if v := strings.TrimSpace(c.Query("from")); v != "" {
		if f.From, err = time.ParseInLocation(models.DateLayout, v, loc); err != nil {
			return f, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", v)
		}
	}
	if v := strings.TrimSpace(c.Query("to")); v != "" {
		if f.To, err = time.ParseInLocation(models.DateLayout, v, loc); err != nil {
			return f, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", v)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, errors.New("from must not be after to")
	}
	for _, ch := range c.QueryArray("channel") {
		if ch = strings.TrimSpace(ch); ch != "" {
			f.Channels = append(f.Channels, ch)
		}
	}
	return f, nil
}

func (s *Server) readDataset(ctx context.Context) (report.Dataset, error) {
	var ds report.Dataset
	var err error
	if ds.Valid, err = s.opts.Store.ReadOrders(ctx, store.TableValid); err != nil {
		return ds, err
	}
	if ds.Cancelled, err = s.opts.Store.ReadOrders(ctx, store.TableCancelled); err != nil {
		return ds, err
	}
	return ds, nil
}

// load reads the store and applies the request filter. It writes the error
// response itself and returns false when the handler must stop.
func (s *Server) load(c *gin.Context) (report.Dataset, report.Filter, bool) {
	f, err := parseFilter(c, s.opts.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return report.Dataset{}, f, false
	}

	ds, err := s.readDataset(c.Request.Context())
	if s.opts.Metrics != nil {
		s.opts.Metrics.StoreRead(err == nil)
	}
	if err != nil {
		log.Errorf("failed to read store: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": MsgUnavailable})
		return report.Dataset{}, f, false
	}
	return ds, f, true
}

func (s *Server) channels(c *gin.Context) {
	ds, _, ok := s.load(c)
	if !ok {
		return
	}
	first, last := report.DateRange(ds)
	c.JSON(http.StatusOK, gin.H{"channels": report.Channels(ds), "first_date": first, "last_date": last})
}

func (s *Server) summary(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	ds = ds.Apply(f)
	c.JSON(http.StatusOK, gin.H{
		"filter":   f,
		"summary":  report.Summarize(ds),
		"channels": report.ChannelBreakdown(ds.Valid),
	})
}

func (s *Server) trend(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "trend": report.DailyTrend(ds.Apply(f).Valid)})
}

func (s *Server) weekdays(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "weekdays": report.WeekdayCards(ds.Apply(f).Valid)})
}

func (s *Server) heatmap(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "heatmap": report.HourlyHeatmap(ds.Apply(f).Valid)})
}

func (s *Server) deliveryMap(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "map": report.BuildDeliveryMap(ds.Apply(f).Valid, s.opts.Locator)})
}

func (s *Server) neighborhoods(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "neighborhoods": report.Neighborhoods(ds.Apply(f).Valid, limit)})
}

func (s *Server) cancellations(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "cancellations": report.Cancellations(ds.Apply(f))})
}

func (s *Server) payments(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "payments": report.PaymentMethods(ds.Apply(f).Valid)})
}

func (s *Server) lateNight(c *gin.Context) {
	ds, f, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": f, "late_night": report.LateNight(ds.Apply(f).Valid)})
}

func (s *Server) oraculoInfo(c *gin.Context) {
	if s.opts.Oraculo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "oraculo is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": s.opts.Oraculo.Model(), "suggestions": oraculo.Suggestions})
}

func (s *Server) ask(c *gin.Context) {
	if s.opts.Oraculo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "oraculo is not configured"})
		return
	}

	var q oraculo.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request body"})
		return
	}
	if strings.TrimSpace(q.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": oraculo.ErrEmptyQuestion.Error()})
		return
	}

	ds, f, ok := s.load(c)
	if !ok {
		return
	}

	answer, err := s.opts.Oraculo.Ask(c.Request.Context(), q, ds, f)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "error": "⚠️ Erro ao consultar o oráculo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer, "model": s.opts.Oraculo.Model()})
}

func (s *Server) sync(c *gin.Context) {
	if s.opts.Syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "sync is not configured"})
		return
	}

	// a client disconnect must not abort a run halfway through the store writes
	run, err := s.opts.Syncer.Run(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"status": pipeline.OutcomeBusy, "error": err.Error()})
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		log.Errorf("sync failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "source_unavailable", "error": err.Error()})
	case errors.Is(err, pipeline.ErrStoreUnavailable):
		log.Errorf("sync failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_unavailable", "error": err.Error()})
	case err != nil:
		log.Errorf("sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": pipeline.OutcomeFailed, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": run.Outcome(), "report": run})
	}
}
