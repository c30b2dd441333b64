package manager

import "llamagate/pkg/types"

// Status builds the backend section of the /status payload.
func (m *Manager) Status() types.BackendStatus {
	s := m.Snapshot()
	out := types.BackendStatus{
		State:       string(s.State),
		ModelPath:   s.Path,
		URL:         s.URL,
		PID:         s.PID,
		SplitMode:   s.Split,
		LastError:   s.LastError,
		StartsTotal: s.StartsTotal,
	}
	if !s.StartedAt.IsZero() && s.State != StateIdle {
		out.StartedUnix = s.StartedAt.Unix()
	}
	return out
}
