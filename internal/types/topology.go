package types

// COCOLinks is the COCO (18 keypoint) pair list in the order the pose publisher emits it.
var COCOLinks = []Link{
	{PartNeck, PartRightShoulder},
	{PartNeck, PartLeftShoulder},
	{PartRightShoulder, PartRightElbow},
	{PartRightElbow, PartRightWrist},
	{PartLeftShoulder, PartLeftElbow},
	{PartLeftElbow, PartLeftWrist},
	{PartNeck, PartRightHip},
	{PartRightHip, PartRightKnee},
	{PartRightKnee, PartRightAnkle},
	{PartNeck, PartLeftHip},
	{PartLeftHip, PartLeftKnee},
	{PartLeftKnee, PartLeftAnkle},
	{PartNeck, PartNose},
	{PartNose, PartRightEye},
	{PartRightEye, PartRightEar},
	{PartNose, PartLeftEye},
	{PartLeftEye, PartLeftEar},
	{PartRightShoulder, PartRightEar},
	{PartLeftShoulder, PartLeftEar},
}
