package executor

import (
	"encoding/json"
	"fmt"
	"io"

	"maskd/internal/model"
)

// RunWorker is the body of the worker subcommand. It reads exactly one
// request from r, performs one load+generate, and writes exactly one
// outcome line to w.
//
// Inference failures are reported through the outcome, not the process
// exit code: a non-zero exit with no outcome is how a genuine crash
// looks to the supervisor.
func RunWorker(r io.Reader, w io.Writer) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return post(w, outcome{Status: "error", Error: "decode request: " + err.Error()})
	}

	loaded, err := model.Load(req.Descriptor)
	if err != nil {
		return post(w, outcome{Status: "error", Error: err.Error()})
	}
	masks, err := model.Generate(loaded, req.Frame, req.Params)
	if err != nil {
		return post(w, outcome{Status: "error", Error: err.Error()})
	}
	return post(w, outcome{Status: "ok", Masks: masks})
}

func post(w io.Writer, oc outcome) error {
	b, err := json.Marshal(oc)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
