package presenter

// Loop aggregates feature presenters and drives periodic updates.
//
// It calls Tick on the sub-presenters and invokes a scheduler callback. The
// zero value is usable (methods are nil-safe).
type Loop struct {
	History  *HistoryPresenter
	Crop     *CropPresenter
	Notices  *NoticePresenter
	Schedule func()
}

func NewLoop(history *HistoryPresenter, crop *CropPresenter, notices *NoticePresenter, schedule func()) *Loop {
	return &Loop{History: history, Crop: crop, Notices: notices, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	// Crop results first so an applied signature reaches the history presenter
	// in the same tick.
	if l.Crop != nil {
		l.Crop.Tick()
	}
	if l.History != nil {
		l.History.Tick()
	}
	if l.Notices != nil {
		l.Notices.Tick()
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
