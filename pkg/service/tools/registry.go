package tools

import (
	"context"
	"os/exec"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/moneta-lab/moneta/pkg/domain/interfaces"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/utils/logging"
)

// Registry connects to an external tool process speaking MCP over stdio.
// A connection is scoped to a single orchestrator turn: opened, used for
// discovery plus zero or more invocations, then closed. Holding it longer
// would leak the subprocess.
type Registry struct {
	command string
	args    []string
	version string
}

// Option configures a Registry
type Option func(*Registry)

// WithVersion sets the client version reported to the tool process
func WithVersion(version string) Option {
	return func(r *Registry) {
		r.version = version
	}
}

// New creates a Registry for the given tool server command line
func New(command string, args []string, opts ...Option) (*Registry, error) {
	if command == "" {
		return nil, goerr.New("tool server command is required", goerr.T(types.ErrTagConfiguration))
	}
	r := &Registry{
		command: command,
		args:    args,
		version: "dev",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Connect spawns the tool process and establishes an MCP session. The
// returned ToolSet must be closed by the caller on every exit path.
func (r *Registry) Connect(ctx context.Context) (interfaces.ToolSet, error) {
	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "moneta",
		Version: r.version,
	}, nil)

	cmd := exec.CommandContext(ctx, r.command, r.args...)
	session, err := client.Connect(ctx, &mcpsdk.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to tool server",
			goerr.T(types.ErrTagTool),
			goerr.V("command", r.command),
		)
	}

	logging.From(ctx).Debug("connected to tool server", "command", r.command)
	return &toolSet{session: session}, nil
}

type toolSet struct {
	session *mcpsdk.ClientSession
}

// Tools lists the tools exposed by the connected process as invocable,
// schema-described functions.
func (ts *toolSet) Tools(ctx context.Context) ([]gollem.Tool, error) {
	var result []gollem.Tool
	for tool, err := range ts.session.Tools(ctx, nil) {
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list tools", goerr.T(types.ErrTagTool))
		}
		spec, err := toToolSpec(tool)
		if err != nil {
			return nil, err
		}
		result = append(result, &remoteTool{session: ts.session, spec: spec})
	}
	return result, nil
}

func (ts *toolSet) Close() error {
	return ts.session.Close()
}

// remoteTool adapts one discovered MCP tool to the gollem.Tool interface
type remoteTool struct {
	session *mcpsdk.ClientSession
	spec    gollem.ToolSpec
}

func (t *remoteTool) Spec() gollem.ToolSpec {
	return t.spec
}

// Run invokes the remote tool. Failures come back as tagged errors so the
// orchestrator can feed them to the model instead of aborting the turn.
func (t *remoteTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	result, err := t.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.spec.Name,
		Arguments: args,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "tool invocation failed",
			goerr.T(types.ErrTagTool),
			goerr.V("tool", t.spec.Name),
		)
	}

	text := flattenContent(result)
	if result.IsError {
		return nil, goerr.New("tool reported an error",
			goerr.T(types.ErrTagTool),
			goerr.V("tool", t.spec.Name),
			goerr.V("detail", text),
		)
	}

	return decodeResult(text), nil
}

func flattenContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}
