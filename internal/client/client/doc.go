// Package client provides access to the remote detection service over HTTP
// and owns initialization of the local client database.
//
// The service contract (fixed by the backend):
//
//	POST /api/process        multipart {file, color, conf} -> image/jpeg body
//	POST /api/process_video2 multipart {video, color, conf} -> JSON result
//	POST /api/process_video  multipart {video, color, conf} -> video/mp4 body
//	GET  /health             -> 200 when alive
//
// Processing failures come back as HTTP 400 with a JSON body {"error": "..."}.
// The websocket streaming endpoint lives in package stream; this package only
// derives its URL from the configured base address.
package client
