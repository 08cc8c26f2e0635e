package presenter

// NoticeSource queues messages from worker goroutines.
type NoticeSource interface {
	Drain() []string
}

// NoticeView shows a non-blocking status message.
type NoticeView interface {
	ShowNotice(msg string)
}

// NoticePresenter forwards queued notices to the status line.
type NoticePresenter struct {
	source NoticeSource
	view   NoticeView
}

func NewNoticePresenter(source NoticeSource, view NoticeView) *NoticePresenter {
	return &NoticePresenter{source: source, view: view}
}

// Tick shows the newest pending message.
func (p *NoticePresenter) Tick() {
	if p == nil || p.source == nil || p.view == nil {
		return
	}
	msgs := p.source.Drain()
	if len(msgs) == 0 {
		return
	}
	p.view.ShowNotice(msgs[len(msgs)-1])
}
