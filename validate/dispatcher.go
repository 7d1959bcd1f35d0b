package validate

// verdict is one worker's result for one record.
type verdict struct {
	record   SubmissionRecord
	resolved bool
	err      error
}

// runRound validates every pending record on a pool of at most opts.Workers
// goroutines and partitions the batch by verdict. Every record lands in
// exactly one of the two output slices; output order follows completion
// order, not input order. The round always drains fully, and the first worker
// error is returned afterwards, aborting the loop rather than making silent
// partial progress.
func (v *Validator) runRound(pending []SubmissionRecord) (resolved, still []SubmissionRecord, err error) {
	jobs := make(chan SubmissionRecord)
	verdicts := make(chan verdict)

	workers := v.opts.Workers
	if workers > len(pending) {
		workers = len(pending)
	}
	for i := 0; i < workers; i++ {
		go func() {
			for rec := range jobs {
				ok, workerErr := v.validateSubmission(rec)
				verdicts <- verdict{record: rec, resolved: ok, err: workerErr}
			}
		}()
	}

	go func() {
		for _, rec := range pending {
			jobs <- rec
		}
		close(jobs)
	}()

	for range pending {
		verd := <-verdicts
		switch {
		case verd.err != nil:
			if err == nil {
				err = verd.err
			}
		case verd.resolved:
			resolved = append(resolved, verd.record)
		default:
			still = append(still, verd.record)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return resolved, still, nil
}
