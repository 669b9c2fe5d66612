package pipeline

import "net/http"

// interceptWriter перехватывает статусы, для которых настроен ErrorDocument:
// заголовок и тело такого ответа отбрасываются, Pipeline делает внутренний редирект.
type interceptWriter struct {
	http.ResponseWriter
	divert      func(code int) bool
	wroteHeader bool
	diverted    int
}

func (iw *interceptWriter) WriteHeader(code int) {
	if iw.wroteHeader {
		return
	}
	iw.wroteHeader = true
	if iw.divert != nil && iw.divert(code) {
		iw.diverted = code
		return
	}
	iw.ResponseWriter.WriteHeader(code)
}

func (iw *interceptWriter) Write(b []byte) (int, error) {
	if !iw.wroteHeader {
		iw.WriteHeader(http.StatusOK)
	}
	if iw.diverted != 0 {
		return len(b), nil
	}
	return iw.ResponseWriter.Write(b)
}

func (iw *interceptWriter) Flush() {
	if iw.diverted != 0 {
		return
	}
	if !iw.wroteHeader {
		iw.WriteHeader(http.StatusOK)
	}
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (iw *interceptWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}

// statusWriter отдаёт страницу ошибки с исходным статусом запроса.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(int) {
	if sw.wroteHeader {
		return
	}
	sw.wroteHeader = true
	sw.ResponseWriter.WriteHeader(sw.status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.WriteHeader(sw.status)
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Flush() {
	if !sw.wroteHeader {
		sw.WriteHeader(sw.status)
	}
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
