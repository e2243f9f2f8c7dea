package jobs

import "github.com/goliatone/go-jobform/pkg/form"

// EncodeParameters flattens a submission into the string parameters the
// backend accepts. Absent optional values are omitted so the job applies its
// own defaults.
func EncodeParameters(submission form.Submission) map[string]string {
	params := make(map[string]string, submission.Len())
	for _, entry := range submission.Entries {
		if !entry.Value.Present {
			continue
		}
		params[entry.Name] = entry.Value.String()
	}
	return params
}
