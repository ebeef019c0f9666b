package join

import (
	"context"

	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Validate checks the cardinality contract v before a join. Null keys are
// ignored unless joinNulls is set, since they cannot match.
func Validate(ctx context.Context, pool *workers.Pool, left, right Input, v types.JoinValidation, joinNulls bool) error {
	if v.LeftUnique() {
		if err := checkUnique(ctx, pool, left, joinNulls, "left", v); err != nil {
			return err
		}
	}
	if v.RightUnique() {
		if err := checkUnique(ctx, pool, right, joinNulls, "right", v); err != nil {
			return err
		}
	}
	return nil
}

func checkUnique(ctx context.Context, pool *workers.Pool, in Input, joinNulls bool, side string, v types.JoinValidation) error {
	p, err := groups.Build(ctx, pool, in.Keys, in.Rows, groups.Options{DropNullKeys: !joinNulls})
	if err != nil {
		return err
	}
	for g := 0; g < p.Len(); g++ {
		if p.Size(g) > 1 {
			rows := p.Rows(g)
			return errors.JoinValidationf(side, "join keys are not unique (validate=%s): rows %d and %d share a key", v, rows[0], rows[1])
		}
	}
	return nil
}
