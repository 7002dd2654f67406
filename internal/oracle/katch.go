package oracle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"raceloom/internal/atomicfloat"
	"raceloom/internal/raceerr"
)

// NKPL connective literals KATch expects in its specification language.
const (
	nkplNotEquiv = "≢" // ≢
	nkplEquiv    = "≡" // ≡
	nkplCheck    = "check"
)

// policyPlaceholder is the token a property template uses to mark where
// the candidate policy is substituted in by PropertyHolds.
const policyPlaceholder = "$POLICY"

// KATchOracle drives the real KATch binary as a subprocess, one invocation
// per decision, via a temporary .nkpl program file — grounded on the
// original tool's __runNPKLProgram/tool_format choreography.
type KATchOracle struct {
	ToolPath  string
	OutputDir string

	execTime  *atomicfloat.Float64
	hits      counter
	misses    counter
}

type counter struct{ v *atomicfloat.Float64 }

func newCounter() counter { return counter{v: atomicfloat.New(0)} }
func (c counter) inc()    { c.v.Add(1) }
func (c counter) get() int64 { return int64(c.v.Load()) }

// NewKATchOracle returns an oracle that invokes toolPath for every query,
// staging its program files under outputDir.
func NewKATchOracle(toolPath, outputDir string) *KATchOracle {
	return &KATchOracle{
		ToolPath:  toolPath,
		OutputDir: outputDir,
		execTime:  atomicfloat.New(0),
		hits:      newCounter(),
		misses:    newCounter(),
	}
}

func (o *KATchOracle) AreNotEquivalent(ctx context.Context, a, b string) (bool, error) {
	program := fmt.Sprintf("%s %s %s %s", nkplCheck, toolFormat(a), nkplNotEquiv, toolFormat(b))
	return o.runCheck(ctx, program)
}

func (o *KATchOracle) PropertyHolds(ctx context.Context, template, policy string) (bool, error) {
	program := strings.ReplaceAll(template, policyPlaceholder, toolFormat(policy))
	return o.runCheck(ctx, program)
}

func (o *KATchOracle) Stats() Stats {
	return Stats{
		TotalExecTimeSeconds: o.execTime.Load(),
		CacheHits:            o.hits.get(),
		CacheMisses:          o.misses.get(),
	}
}

func (o *KATchOracle) runCheck(ctx context.Context, program string) (bool, error) {
	o.misses.inc()

	f, err := os.CreateTemp(o.OutputDir, "raceloom-*.nkpl")
	if err != nil {
		return false, raceerr.NewOracleError("could not create program file: %v", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(program); err != nil {
		f.Close()
		return false, raceerr.NewOracleError("could not write program file: %v", err)
	}
	f.Close()

	cmd := exec.CommandContext(ctx, o.ToolPath, "run", f.Name())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	out := stdout.String()
	errOut := stderr.String()

	switch {
	case strings.Contains(out, "Check passed"):
		return true, nil
	case strings.Contains(errOut, "Check failed"):
		return false, nil
	case runErr != nil:
		return false, raceerr.NewOracleError("KATch invocation failed: %v (stderr: %s)", runErr, errOut)
	default:
		return false, raceerr.NewOracleError("KATch returned an undecidable result: stdout=%q stderr=%q", out, errOut)
	}
}

var identifierPattern = regexp.MustCompile(`([a-zA-Z_]\w*)`)

// toolFormat converts a policy-algebra expression into NKPL syntax: strip
// quoting and prefix bare identifiers with '@', matching the original
// tool's KATchComm.tool_format.
func toolFormat(expr string) string {
	expr = strings.ReplaceAll(expr, `"`, "")
	return identifierPattern.ReplaceAllString(expr, "@$1")
}
