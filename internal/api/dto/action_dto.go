package dto

// ActionRequest is the single-endpoint envelope used by the legacy web
// client: {action: "create", data} or {action: "update", id, updates, isFinished}.
type ActionRequest struct {
	Action     string         `json:"action"`
	Data       *LegacyTicket  `json:"data"`
	ID         string         `json:"id"`
	Updates    *LegacyUpdates `json:"updates"`
	IsFinished bool           `json:"isFinished"`
}

// LegacyTicket is the create payload of the legacy client. StoreName and
// CreatedAt are accepted but the authenticated outlet and the server clock win.
type LegacyTicket struct {
	ID               string   `json:"id"`
	StoreName        string   `json:"storeName"`
	ReportDate       string   `json:"reportDate"`
	ProblemIndicator string   `json:"problemIndicator"`
	Photos           []string `json:"photos"`
	CreatedAt        int64    `json:"createdAt"`
}

// LegacyUpdates is the planning payload of the legacy client.
type LegacyUpdates struct {
	RiskLevel      string `json:"riskLevel"`
	BusinessImpact string `json:"businessImpact"`
	Recommendation string `json:"recommendation"`
	Department     string `json:"department"`
	PicName        string `json:"picName"`
	PlannedDate    string `json:"plannedDate"`
	TargetEndDate  string `json:"targetEndDate"`
}

// ToPlanRequest maps legacy field names.
func (u LegacyUpdates) ToPlanRequest() PlanRequest {
	return PlanRequest{
		RiskLevel:        u.RiskLevel,
		BusinessImpact:   u.BusinessImpact,
		Recommendation:   u.Recommendation,
		Department:       u.Department,
		AssigneeName:     u.PicName,
		PlannedStartDate: u.PlannedDate,
		TargetEndDate:    u.TargetEndDate,
	}
}
