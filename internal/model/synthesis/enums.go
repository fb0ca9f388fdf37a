package synthesis

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"    // 待处理
	ProjectStatusProcessing ProjectStatus = "processing" // 合成中
	ProjectStatusCompleted  ProjectStatus = "completed"  // 已完成
	ProjectStatusFailed     ProjectStatus = "failed"     // 失败
)

// String 返回字符串表示
func (s ProjectStatus) String() string {
	return string(s)
}

// AudioType 音频文件类型
type AudioType string

const (
	AudioTypeSegment AudioType = "segment" // 单段对白
	AudioTypeMixed   AudioType = "mixed"   // 最终混音
)

// String 返回字符串表示
func (t AudioType) String() string {
	return string(t)
}

// AudioFileStatus 音频文件状态
type AudioFileStatus string

const (
	AudioFileStatusActive   AudioFileStatus = "active"
	AudioFileStatusInactive AudioFileStatus = "inactive"
)

// String 返回字符串表示
func (s AudioFileStatus) String() string {
	return string(s)
}
