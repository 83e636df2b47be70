package scanner

import (
	"context"
	"regexp"
)

// patternRule is one named dangerous-content pattern.
type patternRule struct {
	category string
	regex    *regexp.Regexp
}

// InjectionPatterns is a rule-based scanner matching injection syntax: SQL,
// XSS, destructive shell commands, dangerous code execution, and jailbreak
// phrasing. Patterns are deliberately specific so that merely mentioning a
// function does not trigger; only the dangerous form does.
type InjectionPatterns struct {
	rules []patternRule
}

// NewInjectionPatterns creates the scanner with the default rule set
func NewInjectionPatterns() *InjectionPatterns {
	return &InjectionPatterns{
		rules: []patternRule{
			{"sql_injection", regexp.MustCompile(`(?i);\s*(DROP\s+TABLE|DELETE\s+FROM\s+\w+\s*;|TRUNCATE\s+TABLE)`)},
			{"sql_injection", regexp.MustCompile(`(?i)(UNION\s+ALL\s+SELECT|'\s*OR\s+'1'\s*=\s*'1)`)},
			{"xss", regexp.MustCompile(`(?i)<script[^>]*>.*?(alert|document\.|eval)`)},
			{"xss", regexp.MustCompile(`(?i)javascript:\s*(alert|document\.|eval)`)},
			{"shell_command", regexp.MustCompile(`(?i)rm\s+-rf\s+[/~]`)},
			{"shell_command", regexp.MustCompile(`(?i)sudo\s+(rm|chmod\s+777|dd\s+if)`)},
			{"shell_command", regexp.MustCompile(`(?i)format\s+c:\s*/`)},
			{"shell_command", regexp.MustCompile(`(?i)del\s+/[sf]\s+[a-z]:\\`)},
			{"code_execution", regexp.MustCompile(`(?i)os\.system\s*\(\s*['"].*?(rm|del|format|shutdown|wget.*\|)`)},
			{"code_execution", regexp.MustCompile(`(?i)subprocess\.(call|run|Popen)\s*\(\s*\[?\s*['"].*?(rm|del|curl.*\||wget.*\|)`)},
			{"code_execution", regexp.MustCompile(`(?i)eval\s*\(\s*['"].*?(import|__)`)},
			{"code_execution", regexp.MustCompile(`(?i)exec\s*\(\s*['"].*?(import\s+os|subprocess|socket)`)},
			{"jailbreak", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`)},
			{"jailbreak", regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|prompts?|programming)`)},
		},
	}
}

// Evaluate implements Scanner
func (s *InjectionPatterns) Evaluate(ctx context.Context, text string, spec Spec) (Outcome, error) {
	for _, rule := range s.rules {
		if rule.regex.MatchString(text) {
			return Outcome{
				Name:      spec.Name,
				Triggered: true,
				Text:      text,
				Reason:    rule.category,
			}, nil
		}
	}

	return Outcome{Name: spec.Name, Text: text}, nil
}
