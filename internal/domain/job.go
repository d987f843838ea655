package domain

import (
	"github.com/google/uuid"
)

// Language is the source language of a compile job.
type Language string

const (
	LanguageC   Language = "C"
	LanguageCXX Language = "C++"
)

// Flags groups compiler arguments by where they are needed.
type Flags struct {
	// Local flags only matter to the preprocessor (-I, -D, -include...).
	Local []string
	// Remote flags affect code generation and travel with the job.
	Remote []string
	// Rest are the remaining arguments, passed unchanged to both.
	Rest []string
}

// CompileJob describes one compiler invocation. It is built once by
// argument analysis and is read-only afterwards.
type CompileJob struct {
	ID           uuid.UUID
	Language     Language
	Compiler     string // compiler as invoked, e.g. "gcc"
	CompilerPath string // resolved executable, empty if none was found
	InputFile    string
	OutputFile   string
	Flags        Flags

	// Argv is the original argument list without the compiler itself,
	// used verbatim for local builds.
	Argv []string
}

// NewCompileJob creates a job with a fresh ID.
func NewCompileJob(compiler string) *CompileJob {
	return &CompileJob{
		ID:       uuid.New(),
		Compiler: compiler,
		Language: LanguageC,
	}
}

// LocalArgs returns the full argument list for running the job locally.
func (j *CompileJob) LocalArgs() []string {
	args := make([]string, len(j.Argv))
	copy(args, j.Argv)
	return args
}

// PreprocessArgs returns the arguments that preprocess the input to
// stdout. Remote flags are included since -std, -m and -O change the
// predefined macros.
func (j *CompileJob) PreprocessArgs() []string {
	args := make([]string, 0, len(j.Flags.Local)+len(j.Flags.Remote)+len(j.Flags.Rest)+2)
	args = append(args, j.Flags.Local...)
	args = append(args, j.Flags.Remote...)
	args = append(args, j.Flags.Rest...)
	args = append(args, "-E", j.InputFile)
	return args
}
