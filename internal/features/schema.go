// Package features builds the per-match numeric vectors consumed by the
// model trainer and the prediction path. The column list below is the single
// source of truth for vector layout: training and inference both go through
// Vector(), so the two paths cannot drift apart.
package features

// SchemaVersion tags persisted feature rows and model artifacts. Bump it
// whenever Columns changes; artifacts trained against another version are
// rejected at load time.
const SchemaVersion = "v2"

// Columns is the fixed feature order. Do not reorder or remove entries -
// append and bump SchemaVersion instead.
var Columns = []string{
	// rolling form, last W completed matches per side
	"home_form_ppg",
	"away_form_ppg",
	"diff_form_ppg",
	"home_goals_for_per_match",
	"away_goals_for_per_match",
	"home_goals_against_per_match",
	"away_goals_against_per_match",
	"home_goal_diff_per_match",
	"away_goal_diff_per_match",
	"home_rest_days",
	"away_rest_days",
	"diff_rest_days",

	// standings as of the previous matchday
	"home_position",
	"away_position",
	"diff_position",
	"home_rank_delta",
	"away_rank_delta",
	"diff_rank_delta",
	"diff_points",
	"diff_goal_diff",
	"home_table_strength",
	"away_table_strength",

	// head-to-head over prior meetings
	"h2h_win_rate",
	"h2h_draw_rate",
	"h2h_goal_diff",
	"h2h_avg_goals",
	"h2h_home_venue_win_rate",
	"h2h_matches_count",

	// context
	"home_flag",
}

// Count is the fixed vector length.
var Count = len(Columns)

// Vector flattens a feature map into a slice ordered by Columns. Missing
// names default to 0 so a degraded feature row still yields a usable vector.
func Vector(m map[string]float64) []float64 {
	v := make([]float64, len(Columns))
	for i, name := range Columns {
		v[i] = m[name]
	}
	return v
}

// FromVector rebuilds the named map from an ordered slice. It is the inverse
// of Vector for well-formed input and panics on length mismatch, which only
// happens when a persisted row predates a schema bump.
func FromVector(v []float64) map[string]float64 {
	if len(v) != len(Columns) {
		panic("feature vector length does not match schema")
	}
	m := make(map[string]float64, len(Columns))
	for i, name := range Columns {
		m[name] = v[i]
	}
	return m
}
