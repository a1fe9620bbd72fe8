package celengine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

var (
	envCache     = sync.Map{}
	programCache = sync.Map{}
)

// GetOrBuildEnv returns an environment declaring one variable per attribute.
// Environments are cached by attribute names and kinds.
func GetOrBuildEnv(attrs map[string]any) (*cel.Env, error) {
	key := envKey(attrs)
	if v, ok := envCache.Load(key); ok {
		return v.(*cel.Env), nil
	}

	env, err := BuildCelEnvFromAttributes(attrs)
	if err == nil {
		envCache.Store(key, env)
	}

	return env, err
}

func envKey(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		keys = append(keys, fmt.Sprintf("%s:%T", k, v))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func BuildCelEnvFromAttributes(attrs map[string]any) (*cel.Env, error) {
	var variables []cel.EnvOption

	for key, val := range attrs {
		switch v := val.(type) {
		case string:
			variables = append(variables, cel.Variable(key, cel.StringType))
		case int, int32, int64:
			variables = append(variables, cel.Variable(key, cel.IntType))
		case float32, float64:
			variables = append(variables, cel.Variable(key, cel.DoubleType))
		case bool:
			variables = append(variables, cel.Variable(key, cel.BoolType))
		case []string:
			variables = append(variables, cel.Variable(key, cel.ListType(cel.StringType)))
		case []any:
			variables = append(variables, cel.Variable(key, cel.ListType(cel.DynType)))
		case map[string]any:
			variables = append(variables, cel.Variable(key, cel.MapType(cel.StringType, cel.DynType)))
		default:
			zap.L().Debug("celengine: unhandled attribute type", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", v)))
			variables = append(variables, cel.Variable(key, cel.DynType))
		}
	}

	return cel.NewEnv(variables...)
}

func ValidateExpression(env *cel.Env, expr string) error {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return fmt.Errorf("expression must return bool, got %s", out)
	}
	return nil
}

func program(env *cel.Env, expr string) (cel.Program, error) {
	key := fmt.Sprintf("%p|%s", env, expr)
	if v, ok := programCache.Load(key); ok {
		return v.(cel.Program), nil
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	programCache.Store(key, prg)
	return prg, nil
}

func Evaluate(env *cel.Env, expr string, attrs map[string]any) (bool, error) {
	val, err := EvaluateDynamic(env, expr, attrs)
	if err != nil {
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", val, val)
	}

	return b, nil
}

func EvaluateDynamic(env *cel.Env, expr string, attrs map[string]any) (any, error) {
	prg, err := program(env, expr)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(attrs)
	if err != nil {
		return nil, err
	}

	return out.Value(), nil
}
