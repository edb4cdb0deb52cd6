package types

// JudgeTask contains a single submission to judge
type JudgeTask struct {
	ID       string // run identifier
	Source   string // source file path
	Language string // language name in the judger config
	Problem  string // problem directory
}
