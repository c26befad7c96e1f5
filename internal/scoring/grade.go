package scoring

// Grade is a letter grade derived from a percentage.
type Grade string

// Letter grades.
const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeDPlus  Grade = "D+"
	GradeD      Grade = "D"
	GradeDMinus Grade = "D-"
	GradeF      Grade = "F"
)

// breakpoints are inclusive lower bounds, highest first.
var breakpoints = []struct {
	min   float64
	grade Grade
}{
	{97, GradeAPlus},
	{93, GradeA},
	{90, GradeAMinus},
	{87, GradeBPlus},
	{83, GradeB},
	{80, GradeBMinus},
	{77, GradeCPlus},
	{73, GradeC},
	{70, GradeCMinus},
	{67, GradeDPlus},
	{63, GradeD},
	{60, GradeDMinus},
}

// GradeFor maps a percentage to its letter grade.
func GradeFor(percentage float64) Grade {
	for _, bp := range breakpoints {
		if percentage >= bp.min {
			return bp.grade
		}
	}
	return GradeF
}
