package apps

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
)

var (
	shellMetachars = regexp.MustCompile("[;&|`$(){}!<>\n\r]")
	envVarName     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	safeWord       = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)
)

// BuildCommand builds the shell command for an entry point from user
// parameter values. Every value is validated against its schema and
// shell-quoted. Positional parameters are emitted first in declaration
// order, then flagged parameters, joined with line continuations.
func BuildCommand(ep EntryPoint, params map[string]any) (string, error) {
	defs := make(map[string]Parameter, len(ep.Parameters))
	for _, p := range ep.Parameters {
		defs[p.Key] = p
	}

	for _, p := range ep.Parameters {
		if p.Required && p.Default == nil {
			if _, ok := params[p.Key]; !ok {
				return "", fmt.Errorf("required parameter %q is missing", p.Name)
			}
		}
	}
	for key := range params {
		if _, ok := defs[key]; !ok {
			return "", fmt.Errorf("unknown parameter %q", key)
		}
	}

	// Effective values: user input merged with declared defaults.
	effective := make(map[string]any)
	for _, p := range ep.Parameters {
		if v, ok := params[p.Key]; ok {
			effective[p.Key] = v
		} else if p.Default != nil {
			effective[p.Key] = p.Default
		}
	}

	parts := []string{ep.Command}

	for _, p := range ep.Parameters {
		if p.Flag != "" {
			continue
		}
		value, ok := effective[p.Key]
		if !ok {
			continue
		}
		validated, err := validateValue(p, value)
		if err != nil {
			return "", err
		}
		parts = append(parts, ShellQuote(validated))
	}

	for _, p := range ep.Parameters {
		if p.Flag == "" {
			continue
		}
		value, ok := effective[p.Key]
		if !ok {
			continue
		}
		validated, err := validateValue(p, value)
		if err != nil {
			return "", err
		}
		if p.Type == "boolean" {
			if value == true {
				parts = append(parts, p.Flag)
			}
			continue
		}
		parts = append(parts, p.Flag+" "+ShellQuote(validated))
	}

	return strings.Join(parts, " \\\n  "), nil
}

// validateValue checks one value against its parameter schema and
// returns its command-line string form.
func validateValue(p Parameter, value any) (string, error) {
	switch p.Type {
	case "boolean":
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("parameter %q must be a boolean", p.Name)
		}
		return strconv.FormatBool(b), nil

	case "integer":
		n, err := toNumber(value)
		if err != nil || n != math.Trunc(n) {
			return "", fmt.Errorf("parameter %q must be an integer", p.Name)
		}
		if err := checkBounds(p, n); err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(n), 10), nil

	case "number":
		n, err := toNumber(value)
		if err != nil {
			return "", fmt.Errorf("parameter %q must be a number", p.Name)
		}
		if err := checkBounds(p, n); err != nil {
			return "", err
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil

	case "enum":
		s := fmt.Sprint(value)
		for _, opt := range p.Options {
			if s == opt {
				return s, nil
			}
		}
		return "", fmt.Errorf("parameter %q must be one of %v", p.Name, p.Options)

	case "file", "directory":
		s := strings.ReplaceAll(fmt.Sprint(value), "\\", "/")
		if shellMetachars.MatchString(s) {
			return "", fmt.Errorf("parameter %q contains invalid characters", p.Name)
		}
		if !strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "~") {
			return "", fmt.Errorf("parameter %q must be an absolute path", p.Name)
		}
		expanded := config.ExpandHome(s)
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("parameter %q: path does not exist: %s", p.Name, s)
		}
		return s, nil

	default: // string
		s := fmt.Sprint(value)
		if p.Pattern != "" {
			re, err := regexp.Compile("^(?:" + p.Pattern + ")$")
			if err != nil {
				return "", fmt.Errorf("parameter %q has an invalid pattern", p.Name)
			}
			if !re.MatchString(s) {
				return "", fmt.Errorf("parameter %q does not match required pattern", p.Name)
			}
		}
		return s, nil
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("not a number")
	}
}

func checkBounds(p Parameter, n float64) error {
	if p.Min != nil && n < *p.Min {
		return fmt.Errorf("parameter %q must be >= %v", p.Name, *p.Min)
	}
	if p.Max != nil && n > *p.Max {
		return fmt.Errorf("parameter %q must be <= %v", p.Name, *p.Max)
	}
	return nil
}

// ShellQuote quotes a value for safe use in a POSIX shell command.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// BuildEnvExports renders environment variable assignments for the job
// script, rejecting invalid variable names.
func BuildEnvExports(env map[string]string) (string, error) {
	if len(env) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		if !envVarName.MatchString(name) {
			return "", fmt.Errorf("invalid environment variable name %q", name)
		}
		lines = append(lines, fmt.Sprintf("export %s=%s", name, ShellQuote(env[name])))
	}
	return strings.Join(lines, "\n"), nil
}
