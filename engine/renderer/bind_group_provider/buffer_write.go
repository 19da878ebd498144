package bind_group_provider

// BufferWrite is an upload queued on a provider: Data is copied into the buffer at Binding starting Offset bytes in.
type BufferWrite struct {
	Binding int
	Offset  uint64
	Data    []byte
}
