package dialog

// TopicDialog is one named topic of the script table.
type TopicDialog struct {
	topic   *Topic
	scripts *Scripts
}

// Name returns the topic name.
func (d *TopicDialog) Name() string {
	return d.topic.Name
}

// Steps returns the compiled steps in order.
func (d *TopicDialog) Steps() []*Step {
	return d.topic.Steps
}

// Begin returns a state positioned on the first step of the topic.
// opts seeds the profile; nil starts from an empty one.
func (d *TopicDialog) Begin(opts *Profile) State {
	st := State{Topic: d.topic.Name, Phase: PhaseAsking}
	if opts != nil {
		st.Profile = opts.Clone()
	}
	if d.topic.Name == d.scripts.End {
		st.Phase = PhaseConfirming
		st.ResumeTopic = d.scripts.Home
	}
	return st
}

func (d *TopicDialog) reprompt() string {
	if d.topic.Reprompt != "" {
		return d.topic.Reprompt
	}
	return d.scripts.Fallback
}

func (d *TopicDialog) askRetry() string {
	if d.topic.AskRetry != "" {
		return d.topic.AskRetry
	}
	return d.scripts.Fallback
}
