/*
Package monitoring provides Prometheus metrics for the proxy.

HTTP request metrics are recorded by a gin middleware. The fetch pipeline
reports outcomes, durations, live browser sessions, launch failures,
stabilize timeouts and detected challenge markers.

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
