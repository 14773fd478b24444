package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/gostream/logger"
	"github.com/kbukum/gostream/pipeline"
)

func TestUppercaseDemo(t *testing.T) {
	var out strings.Builder
	var results []pipeline.Result

	res := pipeline.RunPipeline(context.Background(),
		pipeline.FromStrings(lines...),
		[]pipeline.Transform{pipeline.Uppercase()},
		pipeline.ToWriter(&out),
		pipeline.WithLogger(logger.Nop()),
		pipeline.WithCallback(func(r pipeline.Result) { results = append(results, r) }),
	)

	require.NoError(t, res.Err)
	assert.Equal(t, "HELLO WORLD\nTHIS IS A TEST\nNODE.JS STREAMS ARE POWERFUL\nGOODBYE\n", out.String())
	require.Len(t, results, 1)
	assert.True(t, results[0].OK())
	assert.Equal(t, uint64(4), results[0].Delivered)
}
