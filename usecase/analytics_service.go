package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vendfleet/server/domain/entities"
	"github.com/vendfleet/server/domain/repositories"
)

// Analytics errors.
var (
	// ErrModelUnavailable means no completion-service credential was
	// configured; the proxy fails fast without calling out.
	ErrModelUnavailable = errors.New("recommendation service is not configured")

	// ErrMalformedReply means the model did not return the requested JSON
	// shape. The raw text travels with the result so the caller can inspect
	// it.
	ErrMalformedReply = errors.New("model returned a non-JSON reply")

	ErrBadTimeRange = errors.New("time range must be one of week, month, year")
)

const recommendationSystem = `You are an analyst for a vending machine fleet.
Given the state of one machine, suggest up to three concrete actions the
operator should take. Reply with ONLY a JSON object of this exact shape, no
markdown fences and no prose around it:
{"recommendations":[{"title":"...","description":"...","potentialImpact":"..."}]}`

const insightsSystem = `You are an analyst for a vending machine fleet.
Summarize the performance of one machine in two or three plain sentences for
a dashboard. Reply with plain text only.`

// Recommendation is one suggested operator action.
type Recommendation struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	PotentialImpact string `json:"potentialImpact"`
}

// MachineRecommendations is the reply of the recommendation proxy. Raw is
// populated when the model reply could not be parsed.
type MachineRecommendations struct {
	MachineID       string           `json:"machineId"`
	Recommendations []Recommendation `json:"recommendations"`
	Raw             string           `json:"raw,omitempty"`
}

// MetricWindow compares one metric across the current and previous period.
type MetricWindow struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	PercentChange float64 `json:"percentChange"`
}

// TopSeller is the best-selling product of a machine.
type TopSeller struct {
	Name  string `json:"name"`
	Units int    `json:"units"`
}

// PeriodComparisons groups the per-metric windows.
type PeriodComparisons struct {
	Revenue       MetricWindow `json:"revenue"`
	Sales         MetricWindow `json:"sales"`
	AverageTicket MetricWindow `json:"averageTicket"`
	StockTurnover MetricWindow `json:"stockTurnover"`
}

// PerformanceMetrics is the reply of the performance endpoint, shaped for the
// dashboard's analytics page.
type PerformanceMetrics struct {
	MachineID          string            `json:"machineId"`
	TimeRange          string            `json:"timeRange"`
	TotalRevenue       float64           `json:"totalRevenue"`
	RevenueTrend       float64           `json:"revenueTrend"`
	TotalSales         int               `json:"totalSales"`
	SalesTrend         float64           `json:"salesTrend"`
	TopSeller          TopSeller         `json:"topSeller"`
	MonthlyComparisons PeriodComparisons `json:"monthlyComparisons"`
	AIInsights         string            `json:"aiInsights"`
}

const noInsights = "No insights available."

// AnalyticsService formats machine state into prompts for the external
// completion service and computes sales metrics from the machine's history.
type AnalyticsService struct {
	machines repositories.MachineRepository
	model    repositories.LanguageModel
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService creates a new analytics service. A nil model disables
// recommendations and insight text but leaves computed metrics working.
func NewAnalyticsService(
	machines repositories.MachineRepository,
	model repositories.LanguageModel,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		machines: machines,
		model:    model,
		logger:   logger,
		now:      time.Now,
	}
}

// Recommendations asks the model for operator actions for one machine.
func (s *AnalyticsService) Recommendations(ctx context.Context, machineID string) (*MachineRecommendations, error) {
	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if s.model == nil {
		return nil, ErrModelUnavailable
	}

	reply, err := s.model.Generate(ctx, recommendationSystem, machineSummary(machine))
	if err != nil {
		return nil, fmt.Errorf("recommendation request failed: %w", err)
	}

	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		// Models like to wrap JSON in prose or fences; try the first
		// brace-delimited object inside the reply.
		if object, ok := extractJSONObject(reply); ok {
			err = json.Unmarshal([]byte(object), &parsed)
		}
		if err != nil || parsed.Recommendations == nil {
			s.logger.Warn("Unparseable model reply",
				zap.String("machine_id", machineID),
				zap.Int("reply_length", len(reply)))
			return &MachineRecommendations{MachineID: machineID, Raw: reply}, ErrMalformedReply
		}
	}

	return &MachineRecommendations{
		MachineID:       machineID,
		Recommendations: parsed.Recommendations,
	}, nil
}

// PerformanceMetrics computes sales metrics over the given time range
// ("week", "month" or "year"), comparing the current window against the one
// before it. Insight text is best effort; metrics never fail on a model
// error.
func (s *AnalyticsService) PerformanceMetrics(ctx context.Context, machineID, timeRange string) (*PerformanceMetrics, error) {
	window, err := rangeWindow(timeRange)
	if err != nil {
		return nil, err
	}

	machine, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	current := machine.SalesBetween(now.Add(-window), now)
	previous := machine.SalesBetween(now.Add(-2*window), now.Add(-window))

	currentRevenue, previousRevenue := revenueOf(current), revenueOf(previous)
	currentSales, previousSales := float64(len(current)), float64(len(previous))

	currentTicket, previousTicket := 0.0, 0.0
	if currentSales > 0 {
		currentTicket = currentRevenue / currentSales
	}
	if previousSales > 0 {
		previousTicket = previousRevenue / previousSales
	}

	// Turnover relates units sold in a window to the units the machine holds
	// now plus what the window moved, as a percentage.
	stocked := float64(machine.StockedUnits())
	currentTurnover := turnover(currentSales, stocked)
	previousTurnover := turnover(previousSales, stocked)

	name, units := machine.TopSeller()
	if name == "" {
		name = "No data"
	}

	metrics := &PerformanceMetrics{
		MachineID:    machineID,
		TimeRange:    timeRange,
		TotalRevenue: currentRevenue,
		RevenueTrend: percentChange(currentRevenue, previousRevenue),
		TotalSales:   len(current),
		SalesTrend:   percentChange(currentSales, previousSales),
		TopSeller:    TopSeller{Name: name, Units: units},
		MonthlyComparisons: PeriodComparisons{
			Revenue: MetricWindow{
				Current:       currentRevenue,
				Previous:      previousRevenue,
				PercentChange: percentChange(currentRevenue, previousRevenue),
			},
			Sales: MetricWindow{
				Current:       currentSales,
				Previous:      previousSales,
				PercentChange: percentChange(currentSales, previousSales),
			},
			AverageTicket: MetricWindow{
				Current:       currentTicket,
				Previous:      previousTicket,
				PercentChange: percentChange(currentTicket, previousTicket),
			},
			StockTurnover: MetricWindow{
				Current:       currentTurnover,
				Previous:      previousTurnover,
				PercentChange: percentChange(currentTurnover, previousTurnover),
			},
		},
		AIInsights: s.insights(ctx, machine, timeRange, currentRevenue, len(current)),
	}
	return metrics, nil
}

func (s *AnalyticsService) insights(ctx context.Context, machine *entities.Machine, timeRange string, revenue float64, sales int) string {
	if s.model == nil {
		return noInsights
	}

	prompt := fmt.Sprintf("%s\nOver the last %s this machine made %.2f in revenue across %d sales.",
		machineSummary(machine), timeRange, revenue, sales)
	reply, err := s.model.Generate(ctx, insightsSystem, prompt)
	if err != nil {
		s.logger.Warn("Insight generation failed",
			zap.String("machine_id", machine.ID),
			zap.Error(err))
		return noInsights
	}
	return strings.TrimSpace(reply)
}

// machineSummary renders the machine state as a prompt.
func machineSummary(machine *entities.Machine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Machine %s at %q.\n", machine.ID, machine.Location)
	fmt.Fprintf(&b, "Lifetime revenue %.2f, revenue since last collection %.2f.\n",
		machine.TotalRevenue, machine.ActiveRevenue)

	b.WriteString("Inventory:\n")
	for _, slot := range machine.Content {
		fmt.Fprintf(&b, "- slot %s: %s, %d units, retail %.2f, cost %.2f, expires %s\n",
			slot.Key, slot.Name, slot.Amount, slot.RetailPrice, slot.OriginalPrice, slot.ExpiryDate)
	}

	if name, units := machine.TopSeller(); name != "" {
		fmt.Fprintf(&b, "Top seller: %s with %d lifetime units.\n", name, units)
	}

	recent := machine.SalesHistory
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}
	fmt.Fprintf(&b, "Recent sales (%d of %d total):\n", len(recent), len(machine.SalesHistory))
	for _, sale := range recent {
		fmt.Fprintf(&b, "- %s sold for %.2f on %s\n",
			sale.Name, sale.RetailPrice, sale.Date.Format("2006-01-02"))
	}
	return b.String()
}

func rangeWindow(timeRange string) (time.Duration, error) {
	switch timeRange {
	case "week":
		return 7 * 24 * time.Hour, nil
	case "month":
		return 30 * 24 * time.Hour, nil
	case "year":
		return 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrBadTimeRange, timeRange)
	}
}

func revenueOf(sales []entities.Sale) float64 {
	total := 0.0
	for _, sale := range sales {
		total += sale.RetailPrice
	}
	return total
}

func percentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

func turnover(sold, stocked float64) float64 {
	if sold == 0 {
		return 0
	}
	return sold / (stocked + sold) * 100
}

// extractJSONObject returns the first balanced brace-delimited object in s,
// tracking string literals so braces inside them do not count.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
