package plot

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// The spec format gives the model no way to run code, but a model that
// was prompt-injected may still try to smuggle a script into its answer.
// These checks reject such output outright instead of parsing around it.

var forbiddenImportPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bimport\s+os\b`),
	regexp.MustCompile(`\bimport\s+sys\b`),
	regexp.MustCompile(`\bimport\s+subprocess\b`),
	regexp.MustCompile(`\bimport\s+shutil\b`),
	regexp.MustCompile(`\bimport\s+socket\b`),
	regexp.MustCompile(`\bimport\s+requests\b`),
	regexp.MustCompile(`\bimport\s+urllib\b`),
	regexp.MustCompile(`\bfrom\s+os\b`),
	regexp.MustCompile(`\bfrom\s+sys\b`),
	regexp.MustCompile(`\bfrom\s+subprocess\b`),
}

var forbiddenCallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bexec\s*\(`),
	regexp.MustCompile(`\bcompile\s*\(`),
	regexp.MustCompile(`\bopen\s*\(`),
	regexp.MustCompile(`\b__import__\s*\(`),
	regexp.MustCompile(`\bgetattr\s*\(`),
	regexp.MustCompile(`\bsetattr\s*\(`),
	regexp.MustCompile(`\bglobals\s*\(`),
	regexp.MustCompile(`\blocals\s*\(`),
	regexp.MustCompile(`\.system\s*\(`),
	regexp.MustCompile(`\.popen\s*\(`),
	regexp.MustCompile(`\.spawn`),
}

var forbiddenAttributes = []string{
	"__builtins__", "__class__", "__bases__",
	"__subclasses__", "__mro__", "__code__",
	"__globals__", "__dict__",
}

// checkForbiddenTokens rejects chart spec output carrying script fragments.
func checkForbiddenTokens(content string) error {
	lowered := strings.ToLower(content)

	for _, pattern := range forbiddenImportPatterns {
		if pattern.MatchString(lowered) {
			return errors.Errorf("chart spec contains forbidden import: %s", pattern.String())
		}
	}
	for _, pattern := range forbiddenCallPatterns {
		if pattern.MatchString(lowered) {
			return errors.Errorf("chart spec contains forbidden call: %s", pattern.String())
		}
	}
	for _, attr := range forbiddenAttributes {
		if strings.Contains(lowered, attr) {
			return errors.Errorf("chart spec contains forbidden attribute: %s", attr)
		}
	}
	return nil
}
