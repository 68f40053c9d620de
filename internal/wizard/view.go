package wizard

// StepView is a step descriptor as seen by the view layer.
type StepView struct {
	ID          StepID
	Index       int
	Title       string
	Description string
	Current     bool
	Done        bool
}

// ViewModel is the read-only projection consumed by the step views.
type ViewModel struct {
	RunID        string
	IsOpen       bool
	Steps        []StepView
	CurrentIndex int
	CurrentStep  StepID
	Current      StepView
	Data         Answers
	CanContinue  bool
	IsFirstStep  bool
	IsTerminal   bool
}

// View derives the view model from the current run state.
func (m *Machine) View() ViewModel {
	steps := make([]StepView, 0, StepCount)
	for i, s := range registry {
		steps = append(steps, StepView{
			ID:          s.ID,
			Index:       i,
			Title:       s.Title,
			Description: s.Description,
			Current:     i == m.index,
			Done:        i < m.index,
		})
	}
	return ViewModel{
		RunID:        m.runID,
		IsOpen:       m.open,
		Steps:        steps,
		CurrentIndex: m.index,
		CurrentStep:  m.CurrentStep(),
		Current:      steps[m.index],
		Data:         m.answers.clone(),
		CanContinue:  m.CanContinue(),
		IsFirstStep:  m.IsFirstStep(),
		IsTerminal:   m.IsTerminal(),
	}
}
