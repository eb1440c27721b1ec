// Package httpclient is the outbound HTTP client used by the remote
// transcription backends (OpenAI, the whisper sidecar) and by model
// downloads. It layers auth, retry and a circuit breaker from the
// resilience package over net/http and classifies failures so callers can
// tell transient errors from caller mistakes.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://api.openai.com/v1",
//	    Auth:           httpclient.BearerAuth(apiKey),
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("openai"),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/audio/transcriptions",
//	    Body:   &httpclient.MultipartBody{...},
//	})
package httpclient
