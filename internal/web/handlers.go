package web

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"
)

// Templates
var templates *template.Template

func InitTemplates(dir string) error {
	var err error
	templates, err = template.ParseGlob(filepath.Join(dir, "*.html"))
	return err
}

// dashboardState carries preformatted cells; missing values render as "--".
type dashboardState struct {
	NiftyFut   string
	SensexFut  string
	FutRatio   string
	NiftyCash  string
	SensexCash string
	CashRatio  string
	Counters   []counterView
}

func formatCell(v *float64, decimals int) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := buildStateView(s.store.Snapshot())

	crossings, err := s.crossings.ListCrossings(r.Context(), 20)
	if err != nil {
		s.logger.Error("Failed to list crossings for dashboard", zap.Error(err))
	}

	data := map[string]interface{}{
		"State": dashboardState{
			NiftyFut:   formatCell(view.NiftyFut, 2),
			SensexFut:  formatCell(view.SensexFut, 2),
			FutRatio:   formatCell(view.FutRatio, 4),
			NiftyCash:  formatCell(view.NiftyCash, 2),
			SensexCash: formatCell(view.SensexCash, 2),
			CashRatio:  formatCell(view.CashRatio, 4),
			Counters:   view.Counters,
		},
		"Crossings": crossings,
	}

	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}
