// Package document provides the backends that hold the raw mall document.
//
// Every backend stores exactly one JSON document and replaces it wholesale
// on Write:
//
//	file     local file, written to a temp file and renamed into place
//	s3       a single object in an S3 / MinIO bucket
//	postgres a row in mall_documents (schema managed by migrations)
//	sqlite   a row in mall_documents (schema created on open)
//	memory   process memory (tests, demos)
package document
