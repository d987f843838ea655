package analysis

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/domain"
)

// ProgramName is the basename the client is installed under.
const ProgramName = "icecc"

// DefaultCompiler is used when icecc is invoked with options only.
const DefaultCompiler = "cc"

// flags that take a separate argument and only matter to the preprocessor
var localArgFlags = map[string]bool{
	"-I": true, "-D": true, "-U": true,
	"-include": true, "-imacros": true, "-idirafter": true,
	"-iprefix": true, "-iwithprefix": true, "-isystem": true,
	"-iquote": true, "-isysroot": true,
	"-MF": true, "-MT": true, "-MQ": true,
}

// flags that take a separate argument and go everywhere
var restArgFlags = map[string]bool{
	"-Xpreprocessor": true, "-Xlinker": true, "-Xassembler": true,
	"-L": true, "-l": true, "-aux-info": true, "--param": true,
}

// flags that cannot be compiled remotely
var localOnlyFlags = map[string]string{
	"-E":            "preprocess only",
	"-S":            "assembly output",
	"-M":            "dependency listing only",
	"-MM":           "dependency listing only",
	"-fsyntax-only": "syntax check only",
	"-march=native": "host-dependent code generation",
	"-mtune=native": "host-dependent code generation",
	"-mcpu=native":  "host-dependent code generation",
}

var sourceLanguages = map[string]domain.Language{
	".c":   domain.LanguageC,
	".i":   domain.LanguageC,
	".cc":  domain.LanguageCXX,
	".cp":  domain.LanguageCXX,
	".cpp": domain.LanguageCXX,
	".cxx": domain.LanguageCXX,
	".c++": domain.LanguageCXX,
	".C":   domain.LanguageCXX,
	".CPP": domain.LanguageCXX,
	".ii":  domain.LanguageCXX,
}

// Analyzer turns a compiler command line into a CompileJob.
type Analyzer struct {
	logger primary.Logger
	// lookPath resolves a compiler name to an executable, skipping the
	// client's own binary.
	lookPath func(name string) (string, bool)
}

// NewAnalyzer creates an analyzer resolving compilers through PATH.
func NewAnalyzer(logger primary.Logger) *Analyzer {
	return &Analyzer{
		logger:   logger,
		lookPath: findCompiler,
	}
}

// NewAnalyzerWithLookup creates an analyzer with a custom compiler lookup.
func NewAnalyzerWithLookup(logger primary.Logger, lookPath func(string) (string, bool)) *Analyzer {
	return &Analyzer{
		logger:   logger,
		lookPath: lookPath,
	}
}

// Analyse builds the job for argv (argv[0] is the program name) and
// reports whether it must be compiled locally.
func (a *Analyzer) Analyse(argv []string) (*domain.CompileJob, bool) {
	compiler, args := splitCompiler(argv)

	job := domain.NewCompileJob(compiler)
	// Left empty when only icecc itself answers to the name; a bare name
	// would let exec find the masquerade link again.
	if path, ok := a.lookPath(compiler); ok {
		job.CompilerPath = path
	} else {
		a.logger.Warn("Compiler not found in PATH", "compiler", compiler)
	}
	job.Argv = append([]string(nil), args...)
	if strings.Contains(filepath.Base(compiler), "++") {
		job.Language = domain.LanguageCXX
	}

	reason := a.parse(job, args)
	if reason != "" {
		a.logger.Debug("Job must run locally", "jobId", job.ID, "reason", reason)
		return job, true
	}

	a.logger.Debug("Job can run remotely",
		"jobId", job.ID,
		"input", job.InputFile,
		"output", job.OutputFile,
		"language", job.Language,
	)
	return job, false
}

// splitCompiler separates the compiler from its arguments for explicit
// ("icecc gcc -c a.c"), implicit ("icecc -c a.c") and masqueraded
// ("gcc -c a.c" with gcc linked to icecc) invocations.
func splitCompiler(argv []string) (string, []string) {
	if len(argv) == 0 {
		return DefaultCompiler, nil
	}
	if filepath.Base(argv[0]) != ProgramName {
		return filepath.Base(argv[0]), argv[1:]
	}
	if len(argv) > 1 && !strings.HasPrefix(argv[1], "-") && !isSource(argv[1]) {
		return argv[1], argv[2:]
	}
	return DefaultCompiler, argv[1:]
}

// parse fills job from args and returns a non-empty reason when the job
// has to stay local.
func (a *Analyzer) parse(job *domain.CompileJob, args []string) string {
	var (
		reason     string
		sawCompile bool
		inputs     []string
		explicitX  bool
	)
	local := func(why string) {
		if reason == "" {
			reason = why
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, bool) {
			if i+1 >= len(args) {
				local("missing argument for " + arg)
				return "", false
			}
			i++
			return args[i], true
		}

		switch {
		case arg == "-c":
			sawCompile = true
		case localOnlyFlags[arg] != "":
			local(localOnlyFlags[arg])
			job.Flags.Rest = append(job.Flags.Rest, arg)
		case arg == "-o":
			if v, ok := next(); ok {
				job.OutputFile = v
			}
		case strings.HasPrefix(arg, "-o"):
			job.OutputFile = arg[2:]
		case arg == "-x":
			v, ok := next()
			if !ok {
				break
			}
			explicitX = true
			switch v {
			case "c":
				job.Language = domain.LanguageC
			case "c++":
				job.Language = domain.LanguageCXX
			default:
				local("unsupported language " + v)
			}
			job.Flags.Rest = append(job.Flags.Rest, arg, v)
		case localArgFlags[arg]:
			if v, ok := next(); ok {
				job.Flags.Local = append(job.Flags.Local, arg, v)
			}
		case restArgFlags[arg]:
			if v, ok := next(); ok {
				job.Flags.Rest = append(job.Flags.Rest, arg, v)
			}
		case hasAnyPrefix(arg, "-I", "-D", "-U", "-MF", "-MT", "-MQ", "-Wp,"),
			arg == "-MD", arg == "-MMD", arg == "-MP", arg == "-nostdinc", arg == "-nostdinc++":
			job.Flags.Local = append(job.Flags.Local, arg)
		case hasAnyPrefix(arg, "-O", "-g", "-f", "-m", "-std="):
			job.Flags.Remote = append(job.Flags.Remote, arg)
		case arg == "-":
			local("reading from stdin")
		case strings.HasPrefix(arg, "-"):
			job.Flags.Rest = append(job.Flags.Rest, arg)
		case isSource(arg) || explicitX:
			inputs = append(inputs, arg)
		default:
			local("linking " + arg)
			job.Flags.Rest = append(job.Flags.Rest, arg)
		}
	}

	switch {
	case !sawCompile:
		local("no -c")
	case len(inputs) == 0:
		local("no source file")
	case len(inputs) > 1:
		local("multiple source files")
	}

	if len(inputs) > 0 {
		job.InputFile = inputs[0]
		if lang, ok := sourceLanguages[filepath.Ext(job.InputFile)]; ok && !explicitX {
			job.Language = lang
		}
	}
	if job.OutputFile == "" && job.InputFile != "" {
		base := filepath.Base(job.InputFile)
		job.OutputFile = strings.TrimSuffix(base, filepath.Ext(base)) + ".o"
	}
	if job.OutputFile == "-" {
		local("output to stdout")
	}

	return reason
}

func isSource(arg string) bool {
	_, ok := sourceLanguages[filepath.Ext(arg)]
	return ok
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// findCompiler searches PATH for name, skipping any candidate that is
// (or links to) the client itself so masquerading never recurses.
func findCompiler(name string) (string, bool) {
	if strings.Contains(name, string(os.PathSeparator)) {
		return name, true
	}

	self, _ := os.Executable()
	if self != "" {
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
	}

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
			continue
		}
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}
		if filepath.Base(resolved) == ProgramName || (self != "" && resolved == self) {
			continue
		}
		if !strings.ContainsRune(candidate, os.PathSeparator) {
			// "." in PATH; keep a separator so exec does not search again.
			candidate = "." + string(os.PathSeparator) + candidate
		}
		return candidate, true
	}
	return "", false
}
