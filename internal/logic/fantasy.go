package logic

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

// BootstrapSource is the fantasy provider surface.
type BootstrapSource interface {
	Bootstrap(ctx context.Context) (*models.FantasyBootstrap, error)
}

// FantasyService ranks fantasy players and suggests squad moves.
type FantasyService interface {
	PlayerPredictions(ctx context.Context, position string, limit int) ([]models.FantasyPrediction, error)
	TransferSuggestions(ctx context.Context, req models.TransferRequest) ([]models.TransferSuggestion, error)
	DifferentialPicks(ctx context.Context, riskTolerance string) ([]models.DifferentialPick, error)
}

type fantasyService struct {
	source BootstrapSource
}

func NewFantasyService(source BootstrapSource) FantasyService {
	return &fantasyService{source: source}
}

var elementPositions = map[int]string{
	1: "GKP",
	2: "DEF",
	3: "MID",
	4: "FWD",
}

// differential screening thresholds per risk tolerance:
// max ownership %, min confidence, max risk score
var riskProfiles = map[string]struct {
	maxOwnership  float64
	minConfidence float64
	maxRisk       float64
}{
	"low":    {3.0, 0.7, 0.3},
	"medium": {8.0, 0.5, 0.6},
	"high":   {15.0, 0.3, 1.0},
}

const (
	transferGainThreshold = 0.5
	maxSuggestions        = 10
)

// scoredPlayer is a FantasyPlayer with the derived forecast attached.
type scoredPlayer struct {
	models.FantasyPlayer
	TeamName  string
	Position  string
	Price     float64
	Predicted float64
	Conf      float64
	Risk      float64
	Value     float64
	Ownership float64
}

// PlayerPredictions forecasts points for every player, optionally filtered by
// position, ranked by predicted points.
func (s *fantasyService) PlayerPredictions(ctx context.Context, position string, limit int) ([]models.FantasyPrediction, error) {
	players, err := s.scoredPlayers(ctx)
	if err != nil {
		return nil, err
	}

	position = strings.ToUpper(position)
	if position != "" {
		if !validPosition(position) {
			return nil, apperrors.Validationf("unknown position %q", position)
		}
		filtered := players[:0]
		for _, p := range players {
			if p.Position == position {
				filtered = append(filtered, p)
			}
		}
		players = filtered
	}

	sort.Slice(players, func(i, j int) bool { return players[i].Predicted > players[j].Predicted })

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if limit > len(players) {
		limit = len(players)
	}

	out := make([]models.FantasyPrediction, 0, limit)
	for _, p := range players[:limit] {
		out = append(out, models.FantasyPrediction{
			PlayerID:        p.ID,
			Name:            playerName(p.FantasyPlayer),
			Team:            p.TeamName,
			Position:        p.Position,
			Price:           p.Price,
			PredictedPoints: p.Predicted,
			Confidence:      p.Conf,
			RiskScore:       p.Risk,
			ValueScore:      p.Value,
			Ownership:       p.Ownership,
		})
	}
	return out, nil
}

// TransferSuggestions proposes same-position upgrades for the given squad
// within the stated budget headroom.
func (s *fantasyService) TransferSuggestions(ctx context.Context, req models.TransferRequest) ([]models.TransferSuggestion, error) {
	players, err := s.scoredPlayers(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]scoredPlayer, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	squad := make(map[int]bool, len(req.CurrentTeam))
	var current []scoredPlayer
	for _, id := range req.CurrentTeam {
		p, ok := byID[id]
		if !ok {
			return nil, apperrors.NotFoundf("player %d not found", id)
		}
		squad[id] = true
		current = append(current, p)
	}

	var out []models.TransferSuggestion
	for _, own := range current {
		for _, candidate := range players {
			if squad[candidate.ID] || candidate.Position != own.Position {
				continue
			}
			gain := candidate.Predicted - own.Predicted
			if gain < transferGainThreshold {
				continue
			}
			costDelta := candidate.Price - own.Price
			if costDelta > req.Budget {
				continue
			}
			out = append(out, models.TransferSuggestion{
				PlayerOut:           playerName(own.FantasyPlayer),
				PlayerIn:            playerName(candidate.FantasyPlayer),
				PredictedPointsGain: gain,
				Confidence:          candidate.Conf,
				RiskLevel:           riskLevel(candidate.Risk),
				CostImpact:          costDelta,
				Reasoning: fmt.Sprintf("%s projects %.1f points vs %.1f for %s (%s)",
					playerName(candidate.FantasyPlayer), candidate.Predicted,
					own.Predicted, playerName(own.FantasyPlayer), own.Position),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PredictedPointsGain > out[j].PredictedPointsGain
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out, nil
}

// DifferentialPicks screens for low-ownership players whose forecast clears
// the tolerance profile.
func (s *fantasyService) DifferentialPicks(ctx context.Context, riskTolerance string) ([]models.DifferentialPick, error) {
	profile, ok := riskProfiles[strings.ToLower(riskTolerance)]
	if !ok {
		return nil, apperrors.Validationf("risk tolerance must be low, medium or high")
	}

	players, err := s.scoredPlayers(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.DifferentialPick
	for _, p := range players {
		if p.Ownership >= profile.maxOwnership ||
			p.Conf < profile.minConfidence ||
			p.Risk > profile.maxRisk {
			continue
		}
		potential := p.Predicted * (1 - p.Ownership/100)
		out = append(out, models.DifferentialPick{
			Name:                  playerName(p.FantasyPlayer),
			Team:                  p.TeamName,
			Position:              p.Position,
			Price:                 p.Price,
			Ownership:             p.Ownership,
			PredictedPoints:       p.Predicted,
			ValueScore:            p.Value,
			RiskScore:             p.Risk,
			Confidence:            p.Conf,
			DifferentialPotential: potential,
			RiskLevel:             riskLevel(p.Risk),
			Reasoning: fmt.Sprintf("owned by %.1f%%, projecting %.1f points",
				p.Ownership, p.Predicted),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DifferentialPotential > out[j].DifferentialPotential
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out, nil
}

// scoredPlayers derives the forecast for every element in the bootstrap.
// Predicted points blend current form with season points-per-game; confidence
// grows with minutes played and is cut by a flagged chance of playing.
func (s *fantasyService) scoredPlayers(ctx context.Context) ([]scoredPlayer, error) {
	bootstrap, err := s.source.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	teamNames := make(map[int]string, len(bootstrap.Teams))
	for _, t := range bootstrap.Teams {
		teamNames[t.ID] = t.Name
	}

	out := make([]scoredPlayer, 0, len(bootstrap.Elements))
	for _, e := range bootstrap.Elements {
		form := parseFloat(e.Form)
		ppg := parseFloat(e.PointsPerGame)
		predicted := 0.6*form + 0.4*ppg

		playingChance := 1.0
		if e.ChanceOfPlaying != nil {
			playingChance = float64(*e.ChanceOfPlaying) / 100
		}
		gamesPlayed := float64(e.Minutes) / 90
		confidence := clamp01(gamesPlayed/10) * playingChance
		risk := clamp01(1 - confidence)

		price := float64(e.NowCost) / 10
		value := 0.0
		if price > 0 {
			value = predicted / price
		}

		out = append(out, scoredPlayer{
			FantasyPlayer: e,
			TeamName:      teamNames[e.Team],
			Position:      elementPositions[e.ElementType],
			Price:         price,
			Predicted:     predicted,
			Conf:          confidence,
			Risk:          risk,
			Value:         value,
			Ownership:     parseFloat(e.SelectedByPercent),
		})
	}
	return out, nil
}

func playerName(p models.FantasyPlayer) string {
	return strings.TrimSpace(p.FirstName + " " + p.SecondName)
}

func validPosition(p string) bool {
	for _, name := range elementPositions {
		if name == p {
			return true
		}
	}
	return false
}

func riskLevel(risk float64) string {
	switch {
	case risk <= 0.3:
		return "low"
	case risk <= 0.6:
		return "medium"
	default:
		return "high"
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
