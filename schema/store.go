package schema

// rawdb bucket names
const (
	NonceBucket   = "payrail-nonce"
	ReceiptBucket = "payrail-receipt"
)

var AllBuckets = []string{
	NonceBucket,
	ReceiptBucket,
}
