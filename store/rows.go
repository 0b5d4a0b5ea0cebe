// Package store persists self-play matches as parquet, one row per decision.
package store

// SchemaVersion is written to every file's key/value metadata under "schema".
const SchemaVersion = "skirmish_match_v1"

// TurnRow is one decision: the state the controller saw, what it chose, and
// what the search cost.
type TurnRow struct {
	MatchID    string `parquet:"match_id,dict" json:"match_id"`
	Scenario   string `parquet:"scenario,dict" json:"scenario"`
	Turn       int32  `parquet:"turn" json:"turn"`
	Side       string `parquet:"side,dict" json:"side"`
	Controller string `parquet:"controller,dict" json:"controller"`

	Width     int32     `parquet:"width" json:"width"`
	Height    int32     `parquet:"height" json:"height"`
	ResourceX []int32   `parquet:"resource_x" json:"resource_x"`
	ResourceY []int32   `parquet:"resource_y" json:"resource_y"`
	Units     []UnitRow `parquet:"units" json:"units"`

	// Action is the joint action in its String form, "pass" if empty.
	Action string `parquet:"action" json:"action"`
	// Value is the backed-up search value; zero for scripted controllers.
	Value     float64 `parquet:"value" json:"value"`
	Depth     int32   `parquet:"depth" json:"depth"`
	Nodes     int64   `parquet:"nodes" json:"nodes"`
	Cutoffs   int64   `parquet:"cutoffs" json:"cutoffs"`
	ElapsedNs int64   `parquet:"elapsed_ns" json:"elapsed_ns"`

	// Outcome is the match outcome after the action was applied.
	Outcome string `parquet:"outcome,dict" json:"outcome"`
	// TreeJSON is the traced search tree, empty unless tracing was on.
	TreeJSON []byte `parquet:"tree_json" json:"-"`
}

type UnitRow struct {
	ID     int32  `parquet:"id" json:"id"`
	Side   string `parquet:"side,dict" json:"side"`
	X      int32  `parquet:"x" json:"x"`
	Y      int32  `parquet:"y" json:"y"`
	HP     int32  `parquet:"hp" json:"hp"`
	MaxHP  int32  `parquet:"max_hp" json:"max_hp"`
	Range  int32  `parquet:"range" json:"range"`
	Damage int32  `parquet:"damage" json:"damage"`
}

// MatchSummary is what listing a directory reports per file.
type MatchSummary struct {
	FileName string `json:"file_name"`
	MatchID  string `json:"match_id"`
	Scenario string `json:"scenario"`
	Turns    int    `json:"turns"`
	Outcome  string `json:"outcome"`
}
