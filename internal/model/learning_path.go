package model

// LearningPath 是 AI 生成并由用户保存的学习路线。
type LearningPath struct {
	Base
	UserID        string   `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title         string   `gorm:"type:varchar(255);not null" json:"title"`
	Description   string   `gorm:"type:text" json:"description"`
	Topics        []string `gorm:"type:json;serializer:json" json:"topics"`
	TotalLessons  int      `gorm:"not null;default:0" json:"totalLessons"`
	EstimatedTime string   `gorm:"type:varchar(100)" json:"estimatedTime"`
	KeySkills     []string `gorm:"type:json;serializer:json" json:"keySkills"`
	Lessons       []Lesson `gorm:"foreignKey:LearningPathID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

func (LearningPath) TableName() string {
	return "learning_paths"
}
