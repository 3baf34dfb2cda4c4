package domain

// PostureMetrics is the normalized biomechanical measurement bundle attached
// to an insight. Field names here are the storage schema; upstream pipelines
// may report them under different keys and are normalized before write.
type PostureMetrics struct {
	SpineAngle    float64 `dynamodbav:"spineAngle,omitempty" json:"spineAngle,omitempty"`
	HipAlignment  float64 `dynamodbav:"hipAlignment,omitempty" json:"hipAlignment,omitempty"`
	KneeTracking  float64 `dynamodbav:"kneeTracking,omitempty" json:"kneeTracking,omitempty"`
	ShoulderLevel float64 `dynamodbav:"shoulderLevel,omitempty" json:"shoulderLevel,omitempty"`
	WeightShift   float64 `dynamodbav:"weightShift,omitempty" json:"weightShift,omitempty"`
}

// Insight is one AI-generated biomechanical snapshot for a session
// participant. Insights are write-once; the InsightID sort key is
// "{epochMillis}-{uuid}", so ascending key order is chronological.
type Insight struct {
	SessionID       string         `dynamodbav:"sessionId" json:"sessionId"`
	InsightID       string         `dynamodbav:"insightId" json:"insightId"`
	ClientID        string         `dynamodbav:"clientId" json:"clientId"`
	ClientName      string         `dynamodbav:"clientName" json:"clientName"`
	ExerciseName    string         `dynamodbav:"exerciseName,omitempty" json:"exerciseName,omitempty"`
	Posture         PostureMetrics `dynamodbav:"posture,omitempty" json:"posture,omitempty"`
	FormScore       float64        `dynamodbav:"formScore" json:"formScore"`
	BalanceScore    float64        `dynamodbav:"balanceScore" json:"balanceScore"`
	SymmetryScore   float64        `dynamodbav:"symmetryScore" json:"symmetryScore"`
	RiskLevel       string         `dynamodbav:"riskLevel,omitempty" json:"riskLevel,omitempty"`
	RiskFactors     []string       `dynamodbav:"riskFactors,omitempty" json:"riskFactors,omitempty"`
	Recommendations []string       `dynamodbav:"recommendations,omitempty" json:"recommendations,omitempty"`
	RecordedAt      string         `dynamodbav:"recordedAt" json:"recordedAt"`
}
