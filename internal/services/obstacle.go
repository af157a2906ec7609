package services

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nexconsult/nif-lookup/internal/config"
	"github.com/sirupsen/logrus"
)

// GateResult is the outcome of an obstacle check
type GateResult string

const (
	GateClear    GateResult = "clear"
	GateTimedOut GateResult = "timed_out"
)

// ObstacleGate holds the run while a human clears an interactive challenge
type ObstacleGate struct {
	config config.SearchConfig
	settle config.DelayRange
	pacer  pacer
	logger *logrus.Logger
}

// NewObstacleGate creates a new obstacle gate
func NewObstacleGate(cfg config.SearchConfig, settle config.DelayRange, clock Clock, logger *logrus.Logger) *ObstacleGate {
	return &ObstacleGate{
		config: cfg,
		settle: settle,
		pacer:  newPacer(clock),
		logger: logger,
	}
}

// HasObstacle reports whether html carries the challenge signature
func (g *ObstacleGate) HasObstacle(html string) bool {
	return strings.Contains(strings.ToLower(html), strings.ToLower(g.config.ObstacleMarker))
}

// CheckAndWait returns GateClear at once when no challenge is present.
// Otherwise it polls until the clearance selector appears or the ceiling
// elapses. The only error returned is context cancellation.
func (g *ObstacleGate) CheckAndWait(ctx context.Context, page BrowserContext, html string) (GateResult, error) {
	if !g.HasObstacle(html) {
		return GateClear, nil
	}

	g.logger.WithFields(logrus.Fields{
		"browser_id": page.GetID(),
		"timeout":    g.config.ObstacleTimeout.String(),
	}).Warn("Interactive challenge detected, solve it in the browser window to continue")

	_, found, err := pollForSelector(ctx, g.pacer.clock, page, html, g.config.ClearanceSelector, g.config.ObstacleTimeout, g.config.PollInterval, g.logger)
	if err != nil {
		return "", err
	}
	if !found {
		g.logger.WithField("timeout", g.config.ObstacleTimeout.String()).Warn("Challenge was not cleared in time")
		return GateTimedOut, nil
	}

	g.logger.Info("Challenge cleared, resuming")
	if err := g.pacer.wait(ctx, g.settle); err != nil {
		return "", err
	}
	return GateClear, nil
}

// pollForSelector re-reads the page until selector matches or timeout elapses.
// It returns the last markup seen.
func pollForSelector(ctx context.Context, clock Clock, page BrowserContext, html, selector string, timeout, interval time.Duration, logger *logrus.Logger) (string, bool, error) {
	deadline := clock.Now().Add(timeout)

	for {
		if hasSelector(html, selector) {
			return html, true, nil
		}
		if !clock.Now().Before(deadline) {
			return html, false, nil
		}
		if err := clock.Sleep(ctx, interval); err != nil {
			return html, false, err
		}

		current, err := page.GetHTML(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return html, false, ctx.Err()
			}
			logger.WithError(err).Debug("Failed to read page while polling")
			continue
		}
		html = current
	}
}

func hasSelector(html, selector string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}
