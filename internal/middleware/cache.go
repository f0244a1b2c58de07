package middleware

import "net/http"

// ReferenceDataCacheControl is attached to successful reads. Constants change
// rarely, so shared caches may keep responses for a long time.
const ReferenceDataCacheControl = "public, max-age=3153600"

// CacheControl sets the Cache-Control header on successful responses only, so
// downstream caches never pin an error.
func CacheControl(directive string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cacheWriter{ResponseWriter: w, directive: directive}, r)
		})
	}
}

type cacheWriter struct {
	http.ResponseWriter
	directive string
	written   bool
}

func (cw *cacheWriter) WriteHeader(code int) {
	if !cw.written {
		cw.written = true
		if code >= 200 && code < 300 {
			cw.Header().Set("Cache-Control", cw.directive)
		}
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cacheWriter) Write(b []byte) (int, error) {
	if !cw.written {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}
