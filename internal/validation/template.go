package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// valueDef is one `Value` declaration in a template body: a named capture
// with the flags that control how it behaves across records.
type valueDef struct {
	Name      string
	Pattern   string
	Required  bool
	Filldown  bool
	List      bool
}

// ruleRef is one rule line under a state header: a compiled line regex plus
// the actions and optional target state parsed from its `-> ...` suffix.
type ruleRef struct {
	re       *regexp.Regexp
	record   bool
	continueSame bool
	nextState string
}

// compiledTemplate is a parsed structured-text extraction rule, ready to run
// against cleaned command output.
type compiledTemplate struct {
	values []valueDef
	states map[string][]ruleRef
	order  []string // state names in declaration order, "Start" first if present
}

var valueLinePattern = regexp.MustCompile(`^Value\s+((?:\w+\s+)*)(\w+)\s+\((.*)\)\s*$`)
var stateHeaderPattern = regexp.MustCompile(`^(\w+)\s*$`)
var placeholderPattern = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)`)

// parseTemplate compiles a template body in the textfsm-lite grammar this
// core uses: `Value [Flags] NAME (regex)` declarations, followed by one or
// more state blocks (an unindented state name header, then indented rule
// lines of the form `^line-regex -> [Continue.][Record] [State]`).
func parseTemplate(body string) (*compiledTemplate, error) {
	ct := &compiledTemplate{states: map[string][]ruleRef{}}
	values := map[string]valueDef{}

	lines := strings.Split(body, "\n")
	currentState := ""

	for _, raw := range lines {
		trimmed := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(trimmed), "Value ") || strings.HasPrefix(trimmed, "Value ") {
			m := valueLinePattern.FindStringSubmatch(strings.TrimSpace(trimmed))
			if m == nil {
				return nil, fmt.Errorf("malformed Value line: %q", trimmed)
			}
			flags := strings.Fields(m[1])
			vd := valueDef{Name: m[2], Pattern: m[3]}
			for _, f := range flags {
				switch f {
				case "Required":
					vd.Required = true
				case "Filldown":
					vd.Filldown = true
				case "List":
					vd.List = true
				}
			}
			values[vd.Name] = vd
			ct.values = append(ct.values, vd)
			continue
		}

		// Unindented line that isn't a Value declaration: a state header.
		if !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t") {
			if hm := stateHeaderPattern.FindStringSubmatch(strings.TrimSpace(trimmed)); hm != nil {
				currentState = hm[1]
				if _, exists := ct.states[currentState]; !exists {
					ct.states[currentState] = nil
					ct.order = append(ct.order, currentState)
				}
				continue
			}
		}

		// Indented rule line under currentState.
		text := strings.TrimSpace(trimmed)
		if currentState == "" || !strings.HasPrefix(text, "^") {
			continue
		}

		lineRegex, action, nextState := splitRuleLine(text)
		compiledLine, err := compileRuleRegex(lineRegex, values)
		if err != nil {
			return nil, fmt.Errorf("state %s rule %q: %w", currentState, text, err)
		}

		ct.states[currentState] = append(ct.states[currentState], ruleRef{
			re:           compiledLine,
			record:       strings.Contains(action, "Record"),
			continueSame: strings.Contains(action, "Continue"),
			nextState:    nextState,
		})
	}

	if len(ct.order) == 0 {
		return nil, fmt.Errorf("template has no state blocks")
	}
	return ct, nil
}

// splitRuleLine separates a rule's line regex from its `-> action state`
// suffix, if present.
func splitRuleLine(text string) (lineRegex, action, nextState string) {
	idx := strings.Index(text, "->")
	if idx < 0 {
		return text, "", ""
	}
	lineRegex = strings.TrimSpace(text[:idx])
	suffix := strings.Fields(strings.TrimSpace(text[idx+2:]))
	for _, tok := range suffix {
		if tok == "Record" || tok == "Continue" || strings.Contains(tok, "Record") || strings.Contains(tok, "Continue") {
			action += tok + " "
			continue
		}
		nextState = tok
	}
	return lineRegex, action, nextState
}

// compileRuleRegex substitutes ${Name}/$Name placeholders in a rule's line
// regex with the named value's own pattern wrapped as a Go named capture
// group, then compiles the result.
func compileRuleRegex(lineRegex string, values map[string]valueDef) (*regexp.Regexp, error) {
	var substErr error
	substituted := placeholderPattern.ReplaceAllStringFunc(lineRegex, func(m string) string {
		name := strings.Trim(m, "${}")
		vd, ok := values[name]
		if !ok {
			substErr = fmt.Errorf("undefined value %q referenced", name)
			return m
		}
		return fmt.Sprintf("(?P<%s>%s)", name, vd.Pattern)
	})
	if substErr != nil {
		return nil, substErr
	}
	return regexp.Compile(substituted)
}

// run executes the compiled template against cleaned text, producing
// records as ordered field maps. Filldown values persist across records
// until overwritten; Required fields suppress a record if unset.
func (ct *compiledTemplate) run(text string) []map[string]string {
	state := "Start"
	if _, ok := ct.states[state]; !ok {
		state = ct.order[0]
	}

	current := map[string]string{}
	var records []map[string]string

	emit := func() {
		row := map[string]string{}
		for _, vd := range ct.values {
			if vd.Required && current[vd.Name] == "" {
				return
			}
			row[vd.Name] = current[vd.Name]
		}
		records = append(records, row)
		for _, vd := range ct.values {
			if !vd.Filldown {
				delete(current, vd.Name)
			}
		}
	}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		rules := ct.states[state]
		evalFrom := 0

	reeval:
		for i := evalFrom; i < len(rules); i++ {
			rule := rules[i]
			m := rule.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			for j, name := range rule.re.SubexpNames() {
				if name == "" {
					continue
				}
				if m[j] != "" {
					current[name] = m[j]
				}
			}
			if rule.record {
				emit()
			}
			if rule.nextState != "" {
				if _, ok := ct.states[rule.nextState]; ok {
					state = rule.nextState
				}
			}
			if rule.continueSame {
				evalFrom = i + 1
				rules = ct.states[state]
				goto reeval
			}
			break
		}
	}

	return records
}
