// Package storage is the read side of the cloud content store.
//
// File content lives in a MinIO or S3 bucket under Config.ObjectName(cloudID).
// The Client interface covers what a download needs: a bucket probe, an
// object stat and a streaming get. Tests use the testify mock in
// core/storage/mocks.
//
//	client, err := storage.NewClient(cfg)
//	body, err := client.GetObject(ctx, cfg.Bucket, cfg.ObjectName(id), minio.GetObjectOptions{})
package storage
