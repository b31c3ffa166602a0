package treesitter

import (
	"path/filepath"
	"strings"
)

// cplusplusByStd maps -std values to the __cplusplus value they imply.
var cplusplusByStd = map[string]string{
	"c++98": "199711L",
	"c++03": "199711L",
	"c++11": "201103L",
	"c++14": "201402L",
	"c++17": "201703L",
	"c++20": "202002L",
	"c++23": "202302L",
	"c++2b": "202302L",
	"c++2c": "202400L",
}

const defaultCplusplus = "201703L"

// compileFlags is the subset of a compiler command line that affects how
// the tree-sitter front-end preprocesses a file.
type compileFlags struct {
	defines    map[string]string
	quoteDirs  []string
	includeDir []string
	systemDirs []string
}

// parseFlags extracts -I, -iquote, -isystem, -D, -U and -std from args.
// Relative include directories are resolved against cwd.
func parseFlags(args []string, cwd string) compileFlags {
	f := compileFlags{defines: map[string]string{"__cplusplus": defaultCplusplus}}

	abs := func(dir string) string {
		if filepath.IsAbs(dir) || cwd == "" {
			return filepath.Clean(dir)
		}

		return filepath.Join(cwd, dir)
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		value := func(prefix string) (string, bool) {
			if arg == prefix {
				if i+1 < len(args) {
					i++

					return args[i], true
				}

				return "", false
			}

			if strings.HasPrefix(arg, prefix) {
				return strings.TrimPrefix(arg, prefix), true
			}

			return "", false
		}

		switch {
		case strings.HasPrefix(arg, "-iquote"):
			if v, ok := value("-iquote"); ok {
				f.quoteDirs = append(f.quoteDirs, abs(v))
			}
		case strings.HasPrefix(arg, "-isystem"):
			if v, ok := value("-isystem"); ok {
				f.systemDirs = append(f.systemDirs, abs(v))
			}
		case strings.HasPrefix(arg, "-I"):
			if v, ok := value("-I"); ok {
				f.includeDir = append(f.includeDir, abs(v))
			}
		case strings.HasPrefix(arg, "-D"):
			if v, ok := value("-D"); ok {
				name, val, found := strings.Cut(v, "=")
				if !found {
					val = "1"
				}

				f.defines[name] = val
			}
		case strings.HasPrefix(arg, "-U"):
			if v, ok := value("-U"); ok {
				delete(f.defines, v)
			}
		case strings.HasPrefix(arg, "-std="):
			std := strings.Replace(strings.TrimPrefix(arg, "-std="), "gnu++", "c++", 1)
			if v, ok := cplusplusByStd[std]; ok {
				f.defines["__cplusplus"] = v
			}
		default:
		}
	}

	return f
}

// macroTable returns a fresh copy of the predefined macros.
func (f compileFlags) macroTable() map[string]string {
	out := make(map[string]string, len(f.defines))
	for k, v := range f.defines {
		out[k] = v
	}

	return out
}
