package scripttest

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Reporter receives results suite by suite, then a summary.
type Reporter interface {
	StartSuite(suite *Suite)
	EndSuite(suite *Suite)
	TestPassed(result Result)
	TestFailed(result Result)
	TestSkipped(result Result)
	Summary(stats *Stats)
}

// TextReporter outputs human-readable results, colored on a terminal.
type TextReporter struct {
	out     io.Writer
	verbose bool
	color   bool
	indent  int
}

func NewTextReporter(out io.Writer, verbose bool) *TextReporter {
	return &TextReporter{
		out:     out,
		verbose: verbose,
		color:   isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	green  = "\033[32m"
	red    = "\033[31m"
	yellow = "\033[33m"
	reset  = "\033[0m"
)

func (r *TextReporter) paint(color, s string) string {
	if !r.color {
		return s
	}
	return color + s + reset
}

func (r *TextReporter) StartSuite(suite *Suite) {
	fmt.Fprintf(r.out, "\n%s\n", suite.Name)
	r.indent = 2
}

func (r *TextReporter) EndSuite(suite *Suite) {
	if r.verbose {
		fmt.Fprintf(r.out, "%s%d scripts in %v\n", strings.Repeat(" ", r.indent), len(suite.Results), suite.Duration.Round(time.Microsecond))
	}
	r.indent = 0
}

func (r *TextReporter) TestPassed(result Result) {
	fmt.Fprintf(r.out, "%s%s (%v)\n",
		strings.Repeat(" ", r.indent),
		r.paint(green, "✓ "+result.Name), result.Duration.Round(time.Microsecond))
}

func (r *TextReporter) TestFailed(result Result) {
	fmt.Fprintf(r.out, "%s%s (%v)\n",
		strings.Repeat(" ", r.indent),
		r.paint(red, "✗ "+result.Name), result.Duration.Round(time.Microsecond))

	pad := strings.Repeat(" ", r.indent+2)
	if result.Error != nil {
		fmt.Fprintf(r.out, "%sError: %v\n", pad, result.Error)
	}
	if result.Message != "" {
		for _, line := range strings.Split(result.Message, "\n") {
			fmt.Fprintf(r.out, "%s%s\n", pad, line)
		}
	}
}

func (r *TextReporter) TestSkipped(result Result) {
	fmt.Fprintf(r.out, "%s%s\n",
		strings.Repeat(" ", r.indent),
		r.paint(yellow, "⊘ "+result.Name+" (skipped)"))
}

func (r *TextReporter) Summary(stats *Stats) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(r.out, "\n%s\n", rule)
	fmt.Fprintf(r.out, "Scripts:    %s (%s of source)\n", humanize.Comma(int64(stats.TotalTests)), humanize.Bytes(stats.SourceBytes))
	if stats.PassedTests > 0 {
		fmt.Fprintln(r.out, r.paint(green, fmt.Sprintf("Passed:     %d", stats.PassedTests)))
	}
	if stats.FailedTests > 0 {
		fmt.Fprintln(r.out, r.paint(red, fmt.Sprintf("Failed:     %d", stats.FailedTests)))
	}
	if stats.SkippedTests > 0 {
		fmt.Fprintln(r.out, r.paint(yellow, fmt.Sprintf("Skipped:    %d", stats.SkippedTests)))
	}
	fmt.Fprintf(r.out, "Suites:     %d\n", stats.Suites)
	fmt.Fprintf(r.out, "Total time: %v\n", stats.TotalTime.Round(time.Microsecond))

	if stats.FailedTests == 0 {
		fmt.Fprintln(r.out, r.paint(green, "PASS"))
	} else {
		fmt.Fprintln(r.out, r.paint(red, "FAIL"))
	}
}

// JSONReporter outputs one JSON document after the run.
type JSONReporter struct {
	out     io.Writer
	results []JSONTestResult
}

type JSONTestResult struct {
	Suite    string        `json:"suite"`
	Test     string        `json:"test"`
	Passed   bool          `json:"passed"`
	Failed   bool          `json:"failed"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Message  string        `json:"message,omitempty"`
}

type JSONSummary struct {
	Results      []JSONTestResult `json:"results"`
	TotalTests   int              `json:"total_tests"`
	PassedTests  int              `json:"passed_tests"`
	FailedTests  int              `json:"failed_tests"`
	SkippedTests int              `json:"skipped_tests"`
	SourceBytes  uint64           `json:"source_bytes"`
	TotalTime    time.Duration    `json:"total_time"`
}

func NewJSONReporter(out io.Writer) *JSONReporter {
	return &JSONReporter{
		out:     out,
		results: make([]JSONTestResult, 0),
	}
}

func (r *JSONReporter) StartSuite(*Suite) {}

func (r *JSONReporter) EndSuite(*Suite) {}

func (r *JSONReporter) TestPassed(result Result) {
	r.results = append(r.results, JSONTestResult{
		Test:     result.Name,
		Suite:    result.File,
		Passed:   true,
		Duration: result.Duration,
		Message:  result.Message,
	})
}

func (r *JSONReporter) TestFailed(result Result) {
	errorMsg := ""
	if result.Error != nil {
		errorMsg = result.Error.Error()
	}

	r.results = append(r.results, JSONTestResult{
		Test:     result.Name,
		Suite:    result.File,
		Failed:   true,
		Duration: result.Duration,
		Error:    errorMsg,
		Message:  result.Message,
	})
}

func (r *JSONReporter) TestSkipped(result Result) {
	r.results = append(r.results, JSONTestResult{
		Test:    result.Name,
		Suite:   result.File,
		Skipped: true,
		Message: result.Message,
	})
}

func (r *JSONReporter) Summary(stats *Stats) {
	summary := JSONSummary{
		Results:      r.results,
		TotalTests:   stats.TotalTests,
		PassedTests:  stats.PassedTests,
		FailedTests:  stats.FailedTests,
		SkippedTests: stats.SkippedTests,
		SourceBytes:  stats.SourceBytes,
		TotalTime:    stats.TotalTime,
	}

	output, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, "Error generating JSON output: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, string(output))
}

// JUnitReporter outputs JUnit XML after the run.
type JUnitReporter struct {
	out        io.Writer
	testSuites []JUnitTestSuite
}

type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

func NewJUnitReporter(out io.Writer) *JUnitReporter {
	return &JUnitReporter{
		out:        out,
		testSuites: make([]JUnitTestSuite, 0),
	}
}

func (r *JUnitReporter) StartSuite(*Suite) {}

func (r *JUnitReporter) EndSuite(suite *Suite) {
	junitSuite := JUnitTestSuite{
		Name:      suite.Name,
		Tests:     len(suite.Results),
		Time:      suite.Duration.Seconds(),
		TestCases: make([]JUnitTestCase, 0),
	}

	for _, result := range suite.Results {
		testCase := JUnitTestCase{
			Name:      result.Name,
			ClassName: suite.Name,
			Time:      result.Duration.Seconds(),
		}

		if result.Failed {
			junitSuite.Failures++
			testCase.Failure = &JUnitFailure{
				Type:    "ExpectationError",
				Message: result.Message,
			}
			if result.Error != nil {
				testCase.Failure.Content = result.Error.Error()
			}
		} else if result.Skipped {
			junitSuite.Skipped++
			testCase.Skipped = &JUnitSkipped{
				Message: result.Message,
			}
		}

		junitSuite.TestCases = append(junitSuite.TestCases, testCase)
	}

	r.testSuites = append(r.testSuites, junitSuite)
}

func (r *JUnitReporter) TestPassed(Result) {}

func (r *JUnitReporter) TestFailed(Result) {}

func (r *JUnitReporter) TestSkipped(Result) {}

func (r *JUnitReporter) Summary(*Stats) {
	suites := JUnitTestSuites{
		TestSuites: r.testSuites,
	}

	output, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, "Error generating JUnit XML output: %v\n", err)
		return
	}
	fmt.Fprint(r.out, xml.Header)
	fmt.Fprintln(r.out, string(output))
}
