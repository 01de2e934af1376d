package models

// Stats is the dashboard aggregate served to admins.
type Stats struct {
	TotalRequests int              `json:"totalRequests"`
	TotalUsers    int              `json:"totalUsers"`
	ByStatus      map[Status]int   `json:"byStatus"`
	ByPriority    map[Priority]int `json:"byPriority"`
	Overdue       int              `json:"overdue"`
}
