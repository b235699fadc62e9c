package observability

// Config holds opt-in debug surfaces. Everything defaults to off so a
// production rollout exposes nothing beyond the service routes.
type Config struct {
	// EnablePprofTrace mounts the net/http/pprof handlers under /debug/pprof/.
	EnablePprofTrace bool
}
