package state

func cloneStructures(in []Structure) []Structure {
	if in == nil {
		return nil
	}
	out := make([]Structure, len(in))
	copy(out, in)
	return out
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		m.Structures = cloneStructures(m.Structures)
		if m.Files != nil {
			files := make([]FileRef, len(m.Files))
			copy(files, m.Files)
			m.Files = files
		}
		out[i] = m
	}
	return out
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	c.Messages = cloneMessages(c.Messages)
	return c
}

// Clone returns a deep copy of the folder.
func (f Folder) Clone() Folder {
	if f.Assets != nil {
		assets := make([]Asset, len(f.Assets))
		copy(assets, f.Assets)
		f.Assets = assets
	}
	f.Outputs = cloneStructures(f.Outputs)
	return f
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.Events != nil {
		events := make([]StepEvent, len(j.Events))
		for i, ev := range j.Events {
			ev.Structures = cloneStructures(ev.Structures)
			events[i] = ev
		}
		out.Events = events
	}
	out.Structures = cloneStructures(j.Structures)
	return &out
}

// Clone returns a deep copy of the whole snapshot.
func (s State) Clone() State {
	if s.Conversations != nil {
		convs := make([]Conversation, len(s.Conversations))
		for i, c := range s.Conversations {
			convs[i] = c.Clone()
		}
		s.Conversations = convs
	}
	if s.Folders != nil {
		folders := make([]Folder, len(s.Folders))
		for i, f := range s.Folders {
			folders[i] = f.Clone()
		}
		s.Folders = folders
	}
	s.Job = s.Job.Clone()
	return s
}
