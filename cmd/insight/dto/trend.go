package dto

type SubscriberStatsDTO struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Pending   int    `json:"pending"`
}

type TrendBusStatsDTO struct {
	TotalPublished uint64                        `json:"total_published"`
	Subscribers    map[string]SubscriberStatsDTO `json:"subscribers"`
}
