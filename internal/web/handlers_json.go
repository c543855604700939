package web

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vitos/index_ratio_monitor/internal/usecase"
	"go.uber.org/zap"
)

func (s *Server) handleStateJSON(w http.ResponseWriter, r *http.Request) {
	view := buildStateView(s.store.Snapshot())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Error("Failed to encode state", zap.Error(err))
	}
}

func (s *Server) handleStateCSV(w http.ResponseWriter, r *http.Request) {
	view := buildStateView(s.store.Snapshot())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	cw := csv.NewWriter(w)

	write := func(metric string, value *float64) {
		cell := ""
		if value != nil {
			cell = strconv.FormatFloat(*value, 'f', -1, 64)
		}
		cw.Write([]string{metric, cell})
	}

	cw.Write([]string{"metric", "value"})
	write("nifty_fut", view.NiftyFut)
	write("sensex_fut", view.SensexFut)
	write("fut_ratio", view.FutRatio)
	write("nifty_cash", view.NiftyCash)
	write("sensex_cash", view.SensexCash)
	write("cash_ratio", view.CashRatio)
	for _, c := range view.Counters {
		prefix := fmt.Sprintf("%s_%s", c.Pair, strconv.FormatFloat(c.Threshold, 'f', -1, 64))
		cw.Write([]string{prefix + "_up", strconv.FormatUint(c.Up, 10)})
		cw.Write([]string{prefix + "_down", strconv.FormatUint(c.Down, 10)})
	}
	cw.Write([]string{"dropped_ticks", strconv.FormatUint(view.DroppedTicks, 10)})
	last := ""
	if view.LastUpdate != nil {
		last = view.LastUpdate.Format(time.RFC3339)
	}
	cw.Write([]string{"last_update", last})

	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("Failed to write csv", zap.Error(err))
	}
}

// handleStream pushes state over SSE. The mailbox keeps only the latest
// snapshot, so a slow browser tab never backs up ingestion.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	mailbox := s.dispatcher.Subscribe()
	defer s.dispatcher.Unsubscribe(mailbox)

	// Initial paint straight from the store.
	initial := s.store.Snapshot()
	if err := writeStateEvent(w, buildStateView(initial)); err != nil {
		return
	}
	flusher.Flush()

	s.streamLoop(r.Context(), w, flusher, mailbox, initial.TakenAt)
}

// streamLoop delivers mailbox snapshots in strictly increasing TakenAt order.
// A notification racing the initial paint can leave an older snapshot in the
// mailbox; delivering it would show the client counters going backwards.
func (s *Server) streamLoop(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, mailbox *usecase.Mailbox, lastTaken time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-mailbox.Snapshots():
			if !ok {
				return
			}
			if !snap.TakenAt.After(lastTaken) {
				continue
			}
			lastTaken = snap.TakenAt
			if err := writeStateEvent(w, buildStateView(snap)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStateEvent(w http.ResponseWriter, view stateView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload)
	return err
}

func (s *Server) handleCrossings(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	crossings, err := s.crossings.ListCrossings(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list crossings", zap.Error(err))
		http.Error(w, "Failed to list crossings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(crossings); err != nil {
		s.logger.Error("Failed to encode crossings", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	status := map[string]interface{}{
		"ok":            true,
		"dropped_ticks": snap.DroppedTicks,
	}
	if age, ok := snap.Age(time.Now()); ok {
		status["age_seconds"] = age.Seconds()
		status["feed"] = "live"
		if age > 30*time.Second {
			status["feed"] = "stale"
		}
	} else {
		status["feed"] = "waiting"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to encode status", zap.Error(err))
	}
}
