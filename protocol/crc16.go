package protocol

// CRC16 calculates the CCITT CRC16 used to check every frame
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc & 0xFF)
		b ^= b << 4
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// appendCRC appends the big-endian CRC of data followed by the sync byte
func appendCRC(dst []byte, data []byte) []byte {
	crc := CRC16(data)
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync)
}
