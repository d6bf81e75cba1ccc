// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// MinIO is S3-compatible object storage. This package uses the official MinIO
// Go client and works with other S3-compatible services such as Ceph,
// SeaweedFS and Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "backups/")
//	manifest, err := backup.Run(ctx, boltBackend, store)
package minio
