package model

// DifficultyAverages 每个难度档位的平均得分，没有样本的档位为 0
type DifficultyAverages struct {
	Easy   float64 `json:"Easy"`
	Medium float64 `json:"Medium"`
	Hard   float64 `json:"Hard"`
}

// TopicPerformance 某主题下按难度分档的平均得分
type TopicPerformance struct {
	Topic      string             `json:"topic"`
	Subject    string             `json:"subject"`
	Difficulty DifficultyAverages `json:"difficulty"`
}

// PerformanceReport 单一题型（客观/主观）的成绩汇总，每次请求重算
type PerformanceReport struct {
	PerTopic         []TopicPerformance `json:"perTopic"`
	AverageTimeTaken float64            `json:"averageTimeTaken"` // 秒/题
}

// AnalyticsReport 一个用户的完整成绩分析
type AnalyticsReport struct {
	Objective  *PerformanceReport `json:"objective,omitempty"`
	Subjective *PerformanceReport `json:"subjective,omitempty"`
}
