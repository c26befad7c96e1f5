package question

// Answer is a candidate's response to one question. The concrete type
// depends on the question type: StringAnswer for choice, true/false and
// fill-blank questions, CodeAnswer for coding questions.
type Answer interface {
	// Raw returns the answer as it travels on the wire.
	Raw() string
	isAnswer()
}

// StringAnswer is a textual response.
type StringAnswer string

// Raw implements Answer.
func (a StringAnswer) Raw() string { return string(a) }

func (StringAnswer) isAnswer() {}

// CodeAnswer is submitted source code for a coding question.
type CodeAnswer struct {
	Source string
}

// Raw implements Answer.
func (a CodeAnswer) Raw() string { return a.Source }

func (CodeAnswer) isAnswer() {}

// NewAnswer wraps a raw wire value in the variant matching the question type.
func NewAnswer(t Type, raw string) Answer {
	if t == TypeCoding {
		return CodeAnswer{Source: raw}
	}
	return StringAnswer(raw)
}

// Answers maps question id to answer. A missing key means unanswered.
type Answers map[string]Answer

// Clone returns a shallow copy; Answer values are immutable.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Encode flattens the answers into their wire representation.
func (a Answers) Encode() map[string]string {
	out := make(map[string]string, len(a))
	for id, ans := range a {
		if ans == nil {
			continue
		}
		out[id] = ans.Raw()
	}
	return out
}

// DecodeAnswers rebuilds typed answers from their wire representation,
// using the question set to pick each variant. Ids that match no question
// decode as StringAnswer.
func DecodeAnswers(raw map[string]string, questions []Question) Answers {
	types := make(map[string]Type, len(questions))
	for _, q := range questions {
		types[q.ID] = q.Type
	}
	out := make(Answers, len(raw))
	for id, v := range raw {
		out[id] = NewAnswer(types[id], v)
	}
	return out
}
