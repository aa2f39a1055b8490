/*
Package reqflow turns free-text product research into structured
requirements and an editable user-flow diagram.

# Overview

Two coupled pipelines do the real work. The Requirement Synthesizer drives
one research input through a text-generation service and persists the
validated requirement records it extracts. The Flow Generator drives a
flow's full requirement set through the same service, validates the
abstract graph it returns, lays it out top-to-bottom, and atomically
replaces the flow's stored diagram. A third component, the session package,
reconciles the live user-edited graph with the store under debounced,
optimistic writes.

Both external capabilities are plain injected dependencies: the store
behind the Store interface, the generation service behind llm.Client. Test
doubles for either slot in at construction.

# Basic Usage

	st := store.NewMemoryStore()
	client := llm.NewCLI(llm.WithModel("claude-sonnet-4-5"))

	synth := reqflow.NewSynthesizer(st, client)
	result, err := synth.Synthesize(ctx, inputID, reqflow.ModeAppend)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println("requirements created:", len(result.Created))

	gen := reqflow.NewGenerator(st, client)
	if _, err := gen.Generate(ctx, flowID); err != nil {
	    log.Fatal(err)
	}

# Validation Boundary

Generation output is untrusted text until it clears the schema package:
strict JSON parsing behind a single tolerated fence pair, structural
checks, typed drafts out. A response that fails the boundary surfaces as a
ShapeError and writes nothing.

# Error Handling

Every error crossing the public API is one of four kinds defined in the
errors subpackage: InputError, UpstreamError, ShapeError,
PersistenceError. None are retried automatically; a fresh user action (or
a recovered dependency) is required.
*/
package reqflow
