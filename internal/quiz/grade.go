package quiz

import "math"

// Result is the outcome of grading one answer vector.
type Result struct {
	Score          int
	CorrectAnswers []int
}

// Grade compares answers to the question set. It never fails: an answer
// that is missing or outside [0,3] counts as incorrect. The question set is
// expected to have passed Validate, so every entry carries a real index.
func Grade(questions []Question, answers []int) Result {
	res := Result{CorrectAnswers: make([]int, len(questions))}
	for i, q := range questions {
		res.CorrectAnswers[i] = q.CorrectAnswerIndex
		if i >= len(answers) {
			continue
		}
		a := answers[i]
		if a < 0 || a >= OptionCount {
			continue
		}
		if a == q.CorrectAnswerIndex {
			res.Score++
		}
	}
	return res
}

// Percentage returns score/total as a percentage rounded to two decimals.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*10000) / 100
}

// WrongIndices returns the indices of questions answered incorrectly.
func WrongIndices(questions []Question, answers []int) []int {
	var wrong []int
	for i, q := range questions {
		if i >= len(answers) || answers[i] != q.CorrectAnswerIndex {
			wrong = append(wrong, i)
		}
	}
	return wrong
}

// Unanswered marks a skipped question in a stored answer vector. Grade
// always counts it as incorrect.
const Unanswered = -1

// CheckAnswers rejects a submission that carries no answers at all.
// Incomplete or out-of-range vectors are accepted and graded as wrong.
func CheckAnswers(answers []int) error {
	if len(answers) == 0 {
		return Invalid("answers are required")
	}
	return nil
}

// NormalizeAnswers returns exactly n entries. Missing and out-of-range
// entries become Unanswered and extra entries are dropped.
func NormalizeAnswers(answers []int, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = Unanswered
		if i < len(answers) && answers[i] >= 0 && answers[i] < OptionCount {
			out[i] = answers[i]
		}
	}
	return out
}
